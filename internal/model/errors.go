package model

import (
	"errors"
	"fmt"
)

// Structural error classes. A unit that produces one of these is dropped
// from the document; other units are unaffected.
var (
	ErrUnterminatedFence = errors.New("unterminated code fence")
	ErrUnterminatedOmit  = errors.New("unterminated omit region")
	ErrNestedOmit        = errors.New("nested omit region")
	ErrUnbalancedOmit    = errors.New("omit close without open")
	ErrOrphanContent     = errors.New("content outside any section")
	ErrMissingTitle      = errors.New("chapter or section tag without title")
	ErrUnknownLanguage   = errors.New("unknown fence language")
)

// StructuralError locates a malformed marker in a source unit.
type StructuralError struct {
	Unit   string
	Offset int
	Line   int
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("line %d (offset %d): %v", e.Line, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s:%d (offset %d): %v", e.Unit, e.Line, e.Offset, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }
