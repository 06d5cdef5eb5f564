package diag

import "fmt"

// NoOffset marks a diagnostic that is not tied to a byte position.
const NoOffset = -1

type Note struct {
	Offset int
	Msg    string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	// Section names the table being read when the finding was made.
	Section string
	Offset  int
	Notes   []Note
}

func New(sev Severity, code Code, offset int, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Offset:   offset,
		Message:  msg,
	}
}

func NewError(code Code, offset int, msg string) Diagnostic {
	return New(SevError, code, offset, msg)
}

func (d Diagnostic) WithNote(offset int, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Offset: offset, Msg: msg})
	return d
}

// Location renders the section and offset, e.g. "arrays@0x1f40".
func (d Diagnostic) Location() string {
	switch {
	case d.Offset < 0 && d.Section == "":
		return "-"
	case d.Offset < 0:
		return d.Section
	case d.Section == "":
		return fmt.Sprintf("@0x%x", d.Offset)
	default:
		return fmt.Sprintf("%s@0x%x", d.Section, d.Offset)
	}
}
