// Package normalize derives the display and execution forms of a fenced
// snippet.
package normalize

import (
	"strings"

	"github.com/phobologic/litbook/internal/lexer"
	"github.com/phobologic/litbook/internal/model"
)

// EntryPoint detects and supplies a language's program entry point.
// Preamble returns the text a program must start with that src lacks, or
// "" when src needs nothing.
type EntryPoint interface {
	HasEntryPoint(src string) bool
	EntryStub() string
	Preamble(src string) string
}

// Forms holds the two renditions of a snippet.
type Forms struct {
	Display string // omit regions removed, for readers
	Exec    string // omit delimiters removed, content kept, for the toolchain
}

// Normalize builds both forms from the tokens between a fence open and its
// close. Offsets in returned errors are those of the offending tokens; the
// caller fills in the unit.
func Normalize(body []lexer.Token, ep EntryPoint) (Forms, error) {
	var display, exec strings.Builder
	depth := 0
	var openTok lexer.Token

	for _, tok := range body {
		switch tok.Kind {
		case lexer.OmitOpen:
			if depth > 0 {
				return Forms{}, &model.StructuralError{Offset: tok.Offset, Line: tok.Line, Err: model.ErrNestedOmit}
			}
			depth++
			openTok = tok
		case lexer.OmitClose:
			if depth == 0 {
				return Forms{}, &model.StructuralError{Offset: tok.Offset, Line: tok.Line, Err: model.ErrUnbalancedOmit}
			}
			depth--
		default:
			exec.WriteString(tok.Raw)
			if depth == 0 {
				display.WriteString(tok.Raw)
			}
		}
	}
	if depth > 0 {
		return Forms{}, &model.StructuralError{Offset: openTok.Offset, Line: openTok.Line, Err: model.ErrUnterminatedOmit}
	}

	return Forms{
		Display: display.String(),
		Exec:    EnsureEntryPoint(exec.String(), ep),
	}, nil
}

// Text lexes a bare fence body with syn and normalizes it.
func Text(body string, syn *lexer.Syntax, ep EntryPoint) (Forms, error) {
	return Normalize(lexer.Body(body, syn), ep)
}

// EnsureEntryPoint prepends the preamble when src lacks it and appends the
// entry stub when src has no entry point. Applying it to its own result is
// a no-op.
func EnsureEntryPoint(src string, ep EntryPoint) string {
	if ep == nil {
		return src
	}
	if pre := ep.Preamble(src); pre != "" {
		src = pre + src
	}
	if ep.EntryStub() == "" || ep.HasEntryPoint(src) {
		return src
	}
	if src != "" && !strings.HasSuffix(src, "\n") {
		src += "\n"
	}
	return src + ep.EntryStub()
}
