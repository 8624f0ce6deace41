// Package model defines core data structures for litbook.
package model

import "strings"

// SourceUnit is one annotated input file. Ordinal is its position in the
// caller-supplied total order, which assembly follows.
type SourceUnit struct {
	Path     string
	Text     string
	Ordinal  int
	Language string // default language for fences without one
}

// DeclKind indicates the syntactic kind of a top-level declaration.
type DeclKind string

const (
	Package  DeclKind = "package"
	Function DeclKind = "function"
	Method   DeclKind = "method"
	Type     DeclKind = "type"
)

// Decl is a top-level declaration found in snippet source.
type Decl struct {
	Name string
	Kind DeclKind
	Line int
}

// Oracle holds the output a snippet is expected to produce.
type Oracle struct {
	Stdout string
	Stderr string
}

// Snippet is one executable example.
type Snippet struct {
	ID       string // stable across runs: "<unit>#<name>"
	Name     string
	Unit     string
	Line     int
	Language string
	Display  string // omitted regions removed
	Exec     string // omitted regions inlined, entry point ensured
	Oracle   Oracle
	NoRun    bool
}

// BlockKind tags a Block.
type BlockKind int

const (
	ProseBlock BlockKind = iota
	CodeBlock
)

// Block is either prose or a code snippet, in source order.
type Block struct {
	Kind    BlockKind
	Prose   string
	Snippet *Snippet
}

// Section is an ordered list of blocks under a title.
type Section struct {
	Title  string
	Anchor string
	Blocks []Block
}

// Chapter is an ordered list of sections. Its sections may come from
// several source units declaring the same chapter title.
type Chapter struct {
	Title    string
	Sections []*Section
}

// Document is the root artifact, read-only once assembled.
type Document struct {
	Title    string
	Chapters []*Chapter
}

// Snippets returns every snippet in document order.
func (d *Document) Snippets() []*Snippet {
	var out []*Snippet
	for _, ch := range d.Chapters {
		for _, sec := range ch.Sections {
			for i := range sec.Blocks {
				if b := &sec.Blocks[i]; b.Kind == CodeBlock {
					out = append(out, b.Snippet)
				}
			}
		}
	}
	return out
}

// ItemKind tags an Item.
type ItemKind int

const (
	ChapterItem ItemKind = iota
	SectionItem
	ProseItem
	CodeItem
)

// Item is one element of a unit's extracted stream, before assembly.
type Item struct {
	Kind    ItemKind
	Title   string // ChapterItem, SectionItem
	Text    string // ProseItem
	Snippet *Snippet
	Offset  int
	Line    int
}

// ParsedUnit is the fully extracted, normalized content of one SourceUnit.
type ParsedUnit struct {
	Unit  SourceUnit
	Items []Item
}

// Slug turns a title into an identifier usable in URLs and HTML anchors.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r > 127:
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
