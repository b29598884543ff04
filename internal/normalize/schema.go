package normalize

import (
	"encoding/json"
	"strings"
)

// Status is the advisory validity of the schema text typed into the demo.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
)

// Label returns the hint shown under the schema field.
func (s Status) Label() string {
	switch s {
	case StatusValid:
		return "✓ Schema valid"
	case StatusInvalid:
		return "✗ Invalid JSON"
	default:
		return "Optional (JSON object or comma-separated keys)"
	}
}

// OK reports whether the indicator shows the schema as acceptable.
func (s Status) OK() bool {
	return s != StatusInvalid
}

// SchemaStatus checks schema text for JSON well-formedness. Comma-separated key
// lists come out Invalid but are still sent to the backend; this never gates
// submission.
func SchemaStatus(text string) Status {
	t := strings.TrimSpace(text)
	if t == "" {
		return StatusEmpty
	}
	if json.Valid([]byte(t)) {
		return StatusValid
	}
	return StatusInvalid
}

// HasSchema reports whether schema text should be forwarded with a request.
func HasSchema(text string) bool {
	return strings.TrimSpace(text) != ""
}
