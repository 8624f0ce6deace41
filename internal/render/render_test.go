package render

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	gmparser "github.com/yuin/goldmark/parser"
	"golang.org/x/net/html"

	"github.com/phobologic/litbook/internal/assemble"
	"github.com/phobologic/litbook/internal/extract"
	"github.com/phobologic/litbook/internal/model"
)

func parse(t *testing.T, p Page) *html.Node {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader(p.HTML))
	if err != nil {
		t.Fatalf("%s: invalid HTML: %v", p.Name, err)
	}
	return doc
}

func find(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func element(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	for _, t := range find(n, func(n *html.Node) bool { return n.Type == html.TextNode }) {
		b.WriteString(t.Data)
	}
	return b.String()
}

func build(t *testing.T, sources ...string) *model.Document {
	t.Helper()
	x := &extract.Extractor{DefaultLanguage: "go"}
	var units []*model.ParsedUnit
	for i, src := range sources {
		pu, err := x.Unit(model.SourceUnit{Path: filepath.Join("book", string(rune('a'+i))+".lit"), Ordinal: i, Text: src})
		if err != nil {
			t.Fatalf("Unit %d: %v", i, err)
		}
		units = append(units, pu)
	}
	doc, errs := assemble.Build("Go by Example", units)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	return doc
}

const helloSource = "@chapter Hello World\n@section Printing\nOur first program prints the *classic* message.\n\n" +
	"```go\n" +
	"// begin omit\n" +
	"package main\n\nimport \"fmt\"\n\n" +
	"// end omit\n" +
	"func main() {\n\tfmt.Println(\"Hello, world!\") // <b>\n\t//> Hello, World!\n}\n" +
	"```\n"

func TestRenderChapterPage(t *testing.T) {
	t.Parallel()

	doc := build(t, helloSource)
	pages := New().Render(doc)
	if len(pages) != 2 {
		t.Fatalf("got %d pages", len(pages))
	}
	p := pages[1]
	if p.Name != "01-hello-world.html" || p.Err != nil {
		t.Fatalf("page = %s, err %v", p.Name, p.Err)
	}

	root := parse(t, p)
	secs := find(root, element("section"))
	if len(secs) != 1 || attr(secs[0], "id") != "printing" {
		t.Fatalf("sections = %d", len(secs))
	}
	if ems := find(secs[0], element("em")); len(ems) != 1 || text(ems[0]) != "classic" {
		t.Errorf("prose not rendered as markdown")
	}

	codes := find(root, element("code"))
	if len(codes) != 1 {
		t.Fatalf("got %d code blocks", len(codes))
	}
	got := text(codes[0])
	want := doc.Chapters[0].Sections[0].Blocks[1].Snippet.Display
	if got != want {
		t.Errorf("code = %q, want display form %q", got, want)
	}
	if strings.Contains(got, "import") || strings.Contains(got, "begin omit") {
		t.Errorf("omitted content leaked: %q", got)
	}
	if attr(codes[0], "class") != "language-go" {
		t.Errorf("class = %q", attr(codes[0], "class"))
	}
	if len(find(codes[0], element("b"))) != 0 {
		t.Error("code was not escaped")
	}
}

func TestRenderNavigation(t *testing.T) {
	t.Parallel()

	doc := build(t,
		"@chapter One\n@section A\nfirst\n",
		"@chapter Two\n@section B\nsecond\n",
		"@chapter Three\n@section C\nthird\n",
	)
	pages := New().Render(doc)
	names := []string{IndexPage, "01-one.html", "02-two.html", "03-three.html"}
	for i, p := range pages {
		if p.Name != names[i] {
			t.Fatalf("page %d = %s, want %s", i, p.Name, names[i])
		}
	}

	rel := func(p Page, kind string) []string {
		var hrefs []string
		for _, a := range find(parse(t, p), element("a")) {
			if attr(a, "rel") == kind {
				hrefs = append(hrefs, attr(a, "href"))
			}
		}
		return hrefs
	}

	tests := []struct {
		page       int
		prev, next string
	}{
		{1, "", "02-two.html"},
		{2, "01-one.html", "03-three.html"},
		{3, "02-two.html", ""},
	}
	for _, tt := range tests {
		prev, next := rel(pages[tt.page], "prev"), rel(pages[tt.page], "next")
		if (tt.prev == "") != (len(prev) == 0) || (len(prev) > 0 && prev[0] != tt.prev) {
			t.Errorf("%s: prev = %v, want %q", pages[tt.page].Name, prev, tt.prev)
		}
		if (tt.next == "") != (len(next) == 0) || (len(next) > 0 && next[0] != tt.next) {
			t.Errorf("%s: next = %v, want %q", pages[tt.page].Name, next, tt.next)
		}
	}
}

func TestRenderIndex(t *testing.T) {
	t.Parallel()

	doc := build(t, "@chapter Intro\n@section Setup\nx\n@section Hello, World\ny\n")
	idx := New().Render(doc)[0]
	var hrefs []string
	for _, a := range find(parse(t, idx), element("a")) {
		hrefs = append(hrefs, attr(a, "href"))
	}
	joined := strings.Join(hrefs, " ")
	for _, want := range []string{"01-intro.html", "01-intro.html#setup", "01-intro.html#hello-world"} {
		if !strings.Contains(joined, want) {
			t.Errorf("index links %v missing %s", hrefs, want)
		}
	}
}

func TestRenderEmptyChapterDegrades(t *testing.T) {
	t.Parallel()

	doc := &model.Document{Chapters: []*model.Chapter{{Title: "Empty"}}}
	p := New().Render(doc)[1]
	if !errors.Is(p.Err, ErrEmptyChapter) {
		t.Fatalf("err = %v", p.Err)
	}
	root := parse(t, p)
	if len(find(root, element("section"))) != 0 {
		t.Error("empty chapter has sections")
	}
	if h := find(root, element("h1")); len(h) != 1 || text(h[0]) != "Empty" {
		t.Error("degraded page lost its title")
	}
}

type failing struct {
	goldmark.Markdown
}

func (failing) Convert([]byte, io.Writer, ...gmparser.ParseOption) error {
	return errors.New("converter broke")
}

func TestRenderProseFailureDegradesOnePage(t *testing.T) {
	t.Parallel()

	doc := build(t, "@chapter One\n@section A\nprose\n", "@chapter Two\n@section B\n```go\nfunc f() {}\n```\n")
	pages := New(WithMarkdown(failing{goldmark.New()})).Render(doc)

	if pages[1].Err == nil {
		t.Fatal("expected chapter with prose to degrade")
	}
	if len(find(parse(t, pages[1]), element("section"))) != 0 {
		t.Error("degraded page still has content")
	}
	if pages[2].Err != nil {
		t.Errorf("code-only chapter degraded: %v", pages[2].Err)
	}
	if len(find(parse(t, pages[2]), element("code"))) != 1 {
		t.Error("code-only chapter lost its snippet")
	}
}

func TestWritePages(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	pages := New().Render(build(t, helloSource))
	if err := WritePages(dir, pages); err != nil {
		t.Fatalf("WritePages: %v", err)
	}
	for _, p := range pages {
		data, err := os.ReadFile(filepath.Join(dir, p.Name))
		if err != nil {
			t.Fatalf("reading %s: %v", p.Name, err)
		}
		if !bytes.Equal(data, p.HTML) {
			t.Errorf("%s differs on disk", p.Name)
		}
	}
}

func TestRenderSnippetIDs(t *testing.T) {
	t.Parallel()

	code := func(id string) model.Block {
		return model.Block{Kind: model.CodeBlock, Snippet: &model.Snippet{ID: id, Language: "go", Display: "x := 1\n"}}
	}
	doc := &model.Document{Title: "Book", Chapters: []*model.Chapter{{
		Title: "Spaces",
		Sections: []*model.Section{{
			Title:  "Paths",
			Anchor: "paths",
			Blocks: []model.Block{code("my book/a b.lit#main"), code("my-book/a-b.lit#main")},
		}},
	}}}

	p := New().Render(doc)[1]
	if p.Err != nil {
		t.Fatalf("page err: %v", p.Err)
	}
	var ids []string
	for _, pre := range find(parse(t, p), element("pre")) {
		ids = append(ids, attr(pre, "id"))
	}
	want := []string{"snippet-my-book-a-b-lit-main", "snippet-my-book-a-b-lit-main-2"}
	if strings.Join(ids, " ") != strings.Join(want, " ") {
		t.Errorf("ids = %q, want %q", ids, want)
	}
}
