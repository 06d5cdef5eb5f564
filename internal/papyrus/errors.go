package papyrus

import (
	"errors"
	"fmt"

	"papyrus/internal/binio"
	"papyrus/internal/tstring"
)

// FormatError reports an invalid tag, index, count or version.
type FormatError = binio.FormatError

var (
	// ErrTruncatedDocument refuses to write a document whose input ended early.
	ErrTruncatedDocument = errors.New("document is truncated and cannot be written")
	// ErrStringTableBug refuses to write a document whose string table was corrected.
	ErrStringTableBug = tstring.ErrStringTableBug

	errAccounting = errors.New("byte accounting mismatch")
)

// ListError locates a failure inside a homogeneous table, e.g. "arrays 7 of 40".
// Index is zero-based. Partial holds whatever the failing record decoder had
// built before it stopped, and may be nil.
type ListError struct {
	What    string
	Index   int
	Count   int
	Partial any
	Err     error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("%s %d of %d: %v", e.What, e.Index, e.Count, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// LoadError names the section that failed to decode.
type LoadError struct {
	Section string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("papyrus: %s: %v", e.Section, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsFormatError reports whether err carries a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
