package lexer

import "strings"

// Quote describes one string literal delimiter of a language.
type Quote struct {
	Delim     string
	Escapes   bool // backslash escapes the next byte
	Multiline bool // literal may span lines
}

// Syntax tells the lexer how to read code inside a fence: which sequences
// open comments and strings, and which line-anchored tokens are markers.
type Syntax struct {
	LineComment    string
	BlockOpen      string
	BlockClose     string
	NestedComments bool
	Quotes         []Quote // longest delimiters first

	OmitOpen     string
	OmitClose    string
	StdoutPrefix string
	StderrPrefix string
}

func (s *Syntax) quoteAt(text string) *Quote {
	for i := range s.Quotes {
		if strings.HasPrefix(text, s.Quotes[i].Delim) {
			return &s.Quotes[i]
		}
	}
	return nil
}

func (s *Syntax) isOracle(trimmed string) bool {
	return (s.StdoutPrefix != "" && strings.HasPrefix(trimmed, s.StdoutPrefix)) ||
		(s.StderrPrefix != "" && strings.HasPrefix(trimmed, s.StderrPrefix))
}

// scanner tracks whether the cursor sits inside a string literal or a
// block comment. Markers are only honoured while it is idle.
type scanner struct {
	syntax *Syntax
	quote  *Quote
	depth  int
}

func (s *scanner) idle() bool {
	return s.quote == nil && s.depth == 0
}

// feed advances the scanner over one line, without its line terminator.
func (s *scanner) feed(line string) {
	syn := s.syntax
	for i := 0; i < len(line); {
		rest := line[i:]
		switch {
		case s.depth > 0:
			if syn.NestedComments && strings.HasPrefix(rest, syn.BlockOpen) {
				s.depth++
				i += len(syn.BlockOpen)
				continue
			}
			if strings.HasPrefix(rest, syn.BlockClose) {
				s.depth--
				i += len(syn.BlockClose)
				continue
			}
			i++
		case s.quote != nil:
			if s.quote.Escapes && rest[0] == '\\' {
				i += 2
				continue
			}
			if strings.HasPrefix(rest, s.quote.Delim) {
				i += len(s.quote.Delim)
				s.quote = nil
				continue
			}
			i++
		default:
			if syn.LineComment != "" && strings.HasPrefix(rest, syn.LineComment) {
				i = len(line)
				continue
			}
			if syn.BlockOpen != "" && strings.HasPrefix(rest, syn.BlockOpen) {
				s.depth = 1
				i += len(syn.BlockOpen)
				continue
			}
			if q := syn.quoteAt(rest); q != nil {
				s.quote = q
				i += len(q.Delim)
				continue
			}
			i++
		}
	}
	if s.quote != nil && !s.quote.Multiline {
		s.quote = nil
	}
}
