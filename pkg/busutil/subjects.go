package busutil

import (
	"fmt"
	"strings"
)

// Default bus subjects.
const (
	// requestSubjectPrefix scopes request subjects; one host session
	// listens on exactly one derived subject.
	requestSubjectPrefix = "ink.bridge.v1"
	// SubjectChangeEvent carries document change notifications.
	SubjectChangeEvent = "ink.document.changed"
)

// RequestSubject builds the request/reply subject for a host session.
func RequestSubject(session string) string {
	if session == "" {
		session = "default"
	}
	return fmt.Sprintf("%s.%s", requestSubjectPrefix, sanitizeToken(session))
}

// ChangeSubject builds the granular change event subject for an operation.
func ChangeSubject(op string) string {
	return fmt.Sprintf("%s.%s", SubjectChangeEvent, sanitizeToken(op))
}

// sanitizeToken makes a value safe to embed as one subject token.
func sanitizeToken(s string) string {
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "*", "_")
	s = strings.ReplaceAll(s, ">", "_")
	return s
}
