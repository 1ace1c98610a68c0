package busutil

import "encoding/json"

// EncodeMessage serializes a wire message to JSON bytes.
func EncodeMessage(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeMessage deserializes JSON bytes into the given target.
func DecodeMessage(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
