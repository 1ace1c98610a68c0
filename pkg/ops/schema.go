package ops

import "fmt"

// FieldType names the JSON type a parameter must decode to.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "boolean"
	TypeObject FieldType = "object"
	TypeArray  FieldType = "array"
)

// Field declares one parameter of an operation.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema declares the parameter shape of an operation. Parameters not listed
// in the schema are ignored rather than rejected.
type Schema struct {
	Fields []Field
}

// Validate checks params against the schema and returns one problem string
// per offending field, each prefixed with the field name. An empty result
// means the params satisfy the schema.
func (s Schema) Validate(params map[string]interface{}) []string {
	var problems []string
	for _, f := range s.Fields {
		value, present := params[f.Name]
		if !present || value == nil {
			if f.Required {
				problems = append(problems, fmt.Sprintf("%s: required", f.Name))
			}
			continue
		}
		if !typeMatches(value, f.Type) {
			problems = append(problems, fmt.Sprintf("%s: expected %s", f.Name, f.Type))
		}
	}
	return problems
}

func typeMatches(value interface{}, t FieldType) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		// encoding/json decodes every number to float64.
		_, ok := value.(float64)
		return ok
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeObject:
		_, ok := value.(map[string]interface{})
		return ok
	case TypeArray:
		_, ok := value.([]interface{})
		return ok
	default:
		return false
	}
}
