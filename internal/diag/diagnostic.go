package diag

import (
	"carbide/internal/source"
)

// Note attaches secondary context to a diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one reported condition.
type Diagnostic struct {
	Severity   Severity
	Code       Code
	Message    string
	Primary    source.Span
	Notes      []Note
	Suggestion string
}

// WithNote returns a copy with an extra note.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}
