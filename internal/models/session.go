package models

import "time"

// DemoState is the step a demo session is on.
type DemoState string

const (
	DemoStateUpload  DemoState = "upload"
	DemoStateParsing DemoState = "parsing"
	DemoStateReview  DemoState = "review"
)

// ProgressLabels are the entries of the demo progress list.
var ProgressLabels = []string{"Upload", "Schema", "Parse", "Review"}

// Step returns the index into ProgressLabels highlighted for the state.
// The schema step is never highlighted on its own.
func (s DemoState) Step() int {
	switch s {
	case DemoStateParsing:
		return 2
	case DemoStateReview:
		return 3
	default:
		return 0
	}
}

// ResultKind says how a result should be displayed.
type ResultKind string

const (
	ResultKindJSON       ResultKind = "json"       // structured value from the backend
	ResultKindText       ResultKind = "text"       // raw backend text that did not parse
	ResultKindDiagnostic ResultKind = "diagnostic" // synthesized after a failed request
)

// BackendFailedMessage is the error text of a diagnostic result.
const BackendFailedMessage = "Backend request failed"

// Diagnostic is the result shown when the backend request fails.
type Diagnostic struct {
	File      string `json:"file" msgpack:"file"`
	SizeBytes int64  `json:"sizeBytes" msgpack:"sizeBytes"`
	Error     string `json:"error" msgpack:"error"`
}

// NewDiagnostic builds the failure result for a file.
func NewDiagnostic(f *FileInfo) Diagnostic {
	d := Diagnostic{Error: BackendFailedMessage}
	if f != nil {
		d.File = f.Name
		d.SizeBytes = f.Size
	}
	return d
}

// Result is the display payload of a session in review.
type Result struct {
	Kind  ResultKind `json:"kind" msgpack:"kind"`
	Value any        `json:"value" msgpack:"value"`
}

// SchemaInfo is the advisory schema indicator.
type SchemaInfo struct {
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
	Label  string `json:"label"`
}

// SelectedFile is the file block of a session snapshot.
type SelectedFile struct {
	*FileInfo
	SizeLabel string `json:"sizeLabel"`
}

// DemoSession is a point-in-time view of a demo session.
type DemoSession struct {
	ID         string        `json:"id"`
	State      DemoState     `json:"state"`
	Step       int           `json:"step"`
	File       *SelectedFile `json:"file,omitempty"`
	Schema     string        `json:"schema"`
	SchemaInfo SchemaInfo    `json:"schemaStatus"`
	Result     *Result       `json:"result,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
