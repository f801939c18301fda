package ireal

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrUnknownScheme        = errors.New("ireal: unknown scheme")
	ErrMalformedProtocol    = errors.New("ireal: malformed protocol")
	ErrStructural           = errors.New("ireal: structural error")
	ErrMissingField         = errors.New("ireal: missing field")
	ErrInvalidKey           = errors.New("ireal: invalid key")
	ErrInvalidTimeSignature = errors.New("ireal: invalid time signature")
	ErrDanglingRepeat       = errors.New("ireal: dangling repeat reference")
	ErrMalformedBundle      = errors.New("ireal: malformed bundle")
	ErrUnencodableCell      = errors.New("ireal: unencodable cell")
	ErrUnencodableField     = errors.New("ireal: unencodable field")
)

// SyntaxError reports a byte sequence that cannot be tokenized.
type SyntaxError struct {
	Offset int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ireal: %s at offset %d", e.Reason, e.Offset)
}

func (e *SyntaxError) Unwrap() error { return ErrMalformedProtocol }

// StructureError reports a token stream that does not assemble into
// measures. Measure is the index of the measure being built.
type StructureError struct {
	Measure int
	Offset  int
	Reason  string
}

func (e *StructureError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("ireal: measure %d: %s at offset %d", e.Measure, e.Reason, e.Offset)
	}
	return fmt.Sprintf("ireal: measure %d: %s", e.Measure, e.Reason)
}

func (e *StructureError) Unwrap() error { return ErrStructural }

// FieldError reports a metadata field that is absent or does not parse.
// Err is one of the package error kinds.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	}
	return fmt.Sprintf("%v: %s %q", e.Err, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// RepeatError reports a placeholder with nothing earlier to repeat.
type RepeatError struct {
	Measure int
	Cell    int
	Symbol  string
}

func (e *RepeatError) Error() string {
	return fmt.Sprintf("ireal: %q at measure %d cell %d has nothing to repeat", e.Symbol, e.Measure, e.Cell)
}

func (e *RepeatError) Unwrap() error { return ErrDanglingRepeat }

// BundleError reports a playlist entry whose payload or checksum cannot
// be isolated or verified. Index is the entry's position in the bundle,
// or -1 for the bundle as a whole.
type BundleError struct {
	Index  int
	Reason string
}

func (e *BundleError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("ireal: bundle: %s", e.Reason)
	}
	return fmt.Sprintf("ireal: bundle entry %d: %s", e.Index, e.Reason)
}

func (e *BundleError) Unwrap() error { return ErrMalformedBundle }

// CellError reports a cell or annotation with no representable form.
// Cell is -1 when the offending item is a measure-level annotation.
type CellError struct {
	Measure int
	Cell    int
	Text    string
	Reason  string
}

func (e *CellError) Error() string {
	where := fmt.Sprintf("measure %d", e.Measure)
	if e.Cell >= 0 {
		where += fmt.Sprintf(" cell %d", e.Cell)
	}
	if e.Text == "" {
		return fmt.Sprintf("ireal: %s: %s", where, e.Reason)
	}
	return fmt.Sprintf("ireal: %s: %s: %q", where, e.Reason, e.Text)
}

func (e *CellError) Unwrap() error { return ErrUnencodableCell }
