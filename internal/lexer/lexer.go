// Package lexer splits an annotated source unit into marker tokens and the
// literal text between them. Concatenating every token's Raw text gives back
// the input exactly.
package lexer

import (
	"fmt"
	"strings"

	"github.com/phobologic/litbook/internal/model"
)

// Kind identifies a token.
type Kind int

const (
	Text Kind = iota
	ChapterTag
	SectionTag
	FenceOpen
	FenceClose
	OmitOpen
	OmitClose
	OracleLine
)

var kindNames = [...]string{
	Text:       "text",
	ChapterTag: "chapter",
	SectionTag: "section",
	FenceOpen:  "fence-open",
	FenceClose: "fence-close",
	OmitOpen:   "omit-open",
	OmitClose:  "omit-close",
	OracleLine: "oracle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is a marker or a text span. Raw is the exact source text, including
// the trailing newline of marker lines.
type Token struct {
	Kind    Kind
	Raw     string
	Payload string // tag title, fence info string, or oracle line content
	Offset  int
	Line    int
}

const (
	chapterPrefix = "@chapter"
	sectionPrefix = "@section"
	fence         = "```"
)

// Resolver returns the syntax for a fence language.
type Resolver func(lang string) (*Syntax, bool)

type state int

const (
	inProse state = iota
	inFence
	inOmit
)

// Lexer holds all mutable state for a single pass over one unit.
type Lexer struct {
	unit        string
	src         string
	pos         int
	line        int
	resolve     Resolver
	defaultLang string
	body        bool // lexing a bare fence body: no fence close

	state     state
	code      scanner
	omitDepth int
	fenceAt   int
	fenceLine int
	omitAt    int
	omitLine  int

	tokens []Token
}

// Lex tokenizes src. Fences without a language use defaultLang. An
// unterminated fence or omit region stops lexing and returns a
// *model.StructuralError naming the unit and the opening offset.
func Lex(unit, src, defaultLang string, resolve Resolver) ([]Token, error) {
	l := &Lexer{unit: unit, src: src, line: 1, resolve: resolve, defaultLang: defaultLang}
	return l.run()
}

// Body tokenizes the text between a fence open and close using syn. Omit
// balance is not checked here; see package normalize.
func Body(src string, syn *Syntax) []Token {
	l := &Lexer{src: src, line: 1, body: true, state: inFence, code: scanner{syntax: syn}}
	toks, _ := l.run()
	return toks
}

func (l *Lexer) run() ([]Token, error) {
	for l.pos < len(l.src) {
		at, line := l.pos, l.line
		raw := l.nextLine()
		var err error
		if l.state == inProse {
			err = l.prose(raw, at, line)
		} else {
			err = l.fenced(raw, at, line)
		}
		if err != nil {
			return nil, err
		}
	}
	if l.body {
		return l.tokens, nil
	}
	switch l.state {
	case inOmit:
		return nil, l.errorAt(l.omitAt, l.omitLine, model.ErrUnterminatedOmit)
	case inFence:
		return nil, l.errorAt(l.fenceAt, l.fenceLine, model.ErrUnterminatedFence)
	}
	return l.tokens, nil
}

func (l *Lexer) nextLine() string {
	rest := l.src[l.pos:]
	n := strings.IndexByte(rest, '\n')
	if n < 0 {
		n = len(rest)
	} else {
		n++
	}
	l.pos += n
	l.line++
	return rest[:n]
}

func (l *Lexer) prose(raw string, at, line int) error {
	content := trimEOL(raw)

	for _, t := range []struct {
		prefix string
		kind   Kind
	}{{chapterPrefix, ChapterTag}, {sectionPrefix, SectionTag}} {
		title, ok := tag(content, t.prefix)
		if !ok {
			continue
		}
		if title == "" {
			return l.errorAt(at, line, model.ErrMissingTitle)
		}
		l.emit(Token{Kind: t.kind, Raw: raw, Payload: title, Offset: at, Line: line})
		return nil
	}

	if strings.HasPrefix(content, fence) {
		info := strings.TrimSpace(content[len(fence):])
		lang := l.defaultLang
		if f := strings.Fields(info); len(f) > 0 {
			lang = f[0]
		}
		var syn *Syntax
		ok := false
		if l.resolve != nil {
			syn, ok = l.resolve(lang)
		}
		if !ok || syn == nil {
			return l.errorAt(at, line, fmt.Errorf("%w %q", model.ErrUnknownLanguage, lang))
		}
		l.state = inFence
		l.code = scanner{syntax: syn}
		l.omitDepth = 0
		l.fenceAt, l.fenceLine = at, line
		l.emit(Token{Kind: FenceOpen, Raw: raw, Payload: info, Offset: at, Line: line})
		return nil
	}

	l.text(raw, at, line)
	return nil
}

func (l *Lexer) fenced(raw string, at, line int) error {
	content := trimEOL(raw)
	if l.code.idle() {
		syn := l.code.syntax
		trimmed := strings.TrimSpace(content)
		switch {
		case !l.body && strings.TrimRight(content, " \t") == fence:
			if l.state == inOmit {
				return l.errorAt(l.omitAt, l.omitLine, model.ErrUnterminatedOmit)
			}
			l.state = inProse
			l.emit(Token{Kind: FenceClose, Raw: raw, Offset: at, Line: line})
			return nil
		case syn.OmitOpen != "" && trimmed == syn.OmitOpen:
			if l.omitDepth == 0 {
				l.omitAt, l.omitLine = at, line
			}
			l.omitDepth++
			l.state = inOmit
			l.emit(Token{Kind: OmitOpen, Raw: raw, Offset: at, Line: line})
			return nil
		case syn.OmitClose != "" && trimmed == syn.OmitClose:
			if l.omitDepth > 0 {
				l.omitDepth--
				if l.omitDepth == 0 {
					l.state = inFence
				}
			}
			l.emit(Token{Kind: OmitClose, Raw: raw, Offset: at, Line: line})
			return nil
		case syn.isOracle(trimmed):
			l.emit(Token{Kind: OracleLine, Raw: raw, Payload: content, Offset: at, Line: line})
			return nil
		}
	}
	l.text(raw, at, line)
	l.code.feed(content)
	return nil
}

// text appends raw to the previous text token when they are adjacent.
func (l *Lexer) text(raw string, at, line int) {
	if n := len(l.tokens); n > 0 {
		prev := &l.tokens[n-1]
		if prev.Kind == Text && prev.Offset+len(prev.Raw) == at {
			prev.Raw = l.src[prev.Offset : at+len(raw)]
			return
		}
	}
	l.emit(Token{Kind: Text, Raw: raw, Offset: at, Line: line})
}

func (l *Lexer) emit(t Token) {
	l.tokens = append(l.tokens, t)
}

func (l *Lexer) errorAt(offset, line int, err error) error {
	return &model.StructuralError{Unit: l.unit, Offset: offset, Line: line, Err: err}
}

// tag reports whether content is a tag line for prefix and returns its title.
func tag(content, prefix string) (string, bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", false
	}
	rest := content[len(prefix):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func trimEOL(raw string) string {
	raw = strings.TrimSuffix(raw, "\n")
	return strings.TrimSuffix(raw, "\r")
}
