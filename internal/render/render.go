// Package render turns an assembled Document into linked HTML pages: one
// per chapter plus a table of contents.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/phobologic/litbook/internal/model"
)

// IndexPage is the file name of the table of contents.
const IndexPage = "index.html"

// ErrEmptyChapter marks a chapter rendered without content because it has
// no sections.
var ErrEmptyChapter = errors.New("chapter has no sections")

// MarkdownOptions configures prose rendering.
var MarkdownOptions = []goldmark.Option{
	goldmark.WithExtensions(
		extension.GFM,
		extension.DefinitionList,
		extension.Footnote,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
}

// Page is one rendered file. Err is set when the page was degraded to an
// empty body; the page is still valid HTML and should still be written.
type Page struct {
	Name  string
	Title string
	HTML  []byte
	Err   error
}

// Renderer renders documents. The zero value is not usable; call New.
type Renderer struct {
	md goldmark.Markdown
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithMarkdown replaces the prose converter.
func WithMarkdown(md goldmark.Markdown) Option {
	return func(r *Renderer) { r.md = md }
}

// New returns a Renderer using MarkdownOptions.
func New(opts ...Option) *Renderer {
	r := &Renderer{md: goldmark.New(MarkdownOptions...)}
	for _, o := range opts {
		o(r)
	}
	return r
}

type link struct {
	Href  string
	Title string
}

type block struct {
	Prose    template.HTML
	Code     bool
	ID       string
	Language string
	Display  string
}

type section struct {
	Title  string
	Anchor string
	Blocks []block
}

type pageData struct {
	BookTitle string
	Title     string
	Index     string
	Prev      *link
	Next      *link
	Sections  []section
	Contents  []contentsEntry
}

type contentsEntry struct {
	link
	Sections []link
}

// PageName returns the file name of the i'th chapter (0-based).
func PageName(i int, ch *model.Chapter) string {
	slug := model.Slug(ch.Title)
	if slug == "" {
		slug = "chapter"
	}
	return fmt.Sprintf("%02d-%s.html", i+1, slug)
}

// Render returns the index page followed by one page per chapter in
// document order.
func (r *Renderer) Render(doc *model.Document) []Page {
	names := make([]string, len(doc.Chapters))
	for i, ch := range doc.Chapters {
		names[i] = PageName(i, ch)
	}

	pages := make([]Page, 0, len(doc.Chapters)+1)
	pages = append(pages, r.index(doc, names))
	for i, ch := range doc.Chapters {
		data := pageData{BookTitle: doc.Title, Title: ch.Title, Index: IndexPage}
		if i > 0 {
			data.Prev = &link{Href: names[i-1], Title: doc.Chapters[i-1].Title}
		}
		if i+1 < len(doc.Chapters) {
			data.Next = &link{Href: names[i+1], Title: doc.Chapters[i+1].Title}
		}
		pages = append(pages, r.chapter(names[i], ch, data))
	}
	return pages
}

func (r *Renderer) index(doc *model.Document, names []string) Page {
	data := pageData{BookTitle: doc.Title, Title: doc.Title}
	if data.Title == "" {
		data.Title = "Contents"
	}
	for i, ch := range doc.Chapters {
		e := contentsEntry{link: link{Href: names[i], Title: ch.Title}}
		for _, sec := range ch.Sections {
			e.Sections = append(e.Sections, link{Href: names[i] + "#" + sec.Anchor, Title: sec.Title})
		}
		data.Contents = append(data.Contents, e)
	}
	if len(names) > 0 {
		data.Next = &link{Href: names[0], Title: doc.Chapters[0].Title}
	}
	return r.page(IndexPage, data)
}

func (r *Renderer) chapter(name string, ch *model.Chapter, data pageData) Page {
	if len(ch.Sections) == 0 {
		p := r.page(name, data)
		if p.Err == nil {
			p.Err = ErrEmptyChapter
		}
		return p
	}

	ids := make(map[string]bool)
	for _, sec := range ch.Sections {
		s := section{Title: sec.Title, Anchor: sec.Anchor}
		for _, b := range sec.Blocks {
			if b.Kind == model.CodeBlock {
				s.Blocks = append(s.Blocks, block{
					Code:     true,
					ID:       snippetAnchor(b.Snippet.ID, ids),
					Language: b.Snippet.Language,
					Display:  b.Snippet.Display,
				})
				continue
			}
			var buf bytes.Buffer
			if err := r.md.Convert([]byte(b.Prose), &buf); err != nil {
				return r.degraded(name, data, fmt.Errorf("section %q: %w", sec.Title, err))
			}
			// goldmark escapes raw HTML unless configured with html.WithUnsafe.
			s.Blocks = append(s.Blocks, block{Prose: template.HTML(buf.String())})
		}
		data.Sections = append(data.Sections, s)
	}
	return r.page(name, data)
}

// snippetAnchor returns the HTML id for a snippet: a slug of its ID, made
// unique within the page.
func snippetAnchor(id string, used map[string]bool) string {
	base := "snippet-" + model.Slug(id)
	anchor := base
	for n := 2; used[anchor]; n++ {
		anchor = fmt.Sprintf("%s-%d", base, n)
	}
	used[anchor] = true
	return anchor
}

func (r *Renderer) page(name string, data pageData) Page {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return r.degraded(name, data, err)
	}
	return Page{Name: name, Title: data.Title, HTML: buf.Bytes()}
}

// degraded renders the page shell with no body. The shell template is
// fixed and only interpolates titles and links, so it does not fail.
func (r *Renderer) degraded(name string, data pageData, cause error) Page {
	data.Sections = nil
	data.Contents = nil
	var buf bytes.Buffer
	_ = pageTemplate.Execute(&buf, data)
	return Page{Name: name, Title: data.Title, HTML: buf.Bytes(), Err: cause}
}

// WritePages writes pages under dir, creating it if needed.
func WritePages(dir string, pages []Page) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, p := range pages {
		if err := os.WriteFile(filepath.Join(dir, p.Name), p.HTML, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", p.Name, err)
		}
	}
	return nil
}
