// Package parse finds top-level declarations in snippet source using
// tree-sitter.
package parse

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/litbook/internal/lang"
	"github.com/phobologic/litbook/internal/model"
)

var captureMap = map[string]model.DeclKind{
	"definition.package":  model.Package,
	"definition.function": model.Function,
	"definition.method":   model.Method,
	"definition.type":     model.Type,
}

// ExtractDecls parses source and returns its declarations ordered by line.
// The parser must be created for the correct language.
func ExtractDecls(parser *sitter.Parser, query *sitter.Query, source []byte) []model.Decl {
	if len(source) == 0 {
		return nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var decls []model.Decl

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode *sitter.Node
		var kind model.DeclKind
		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if k, ok := captureMap[cname]; ok {
				kind = k
			}
		}
		if nameNode == nil || kind == "" {
			continue
		}

		decls = append(decls, model.Decl{
			Name: nodeText(nameNode, source),
			Kind: kind,
			Line: int(nameNode.StartPoint().Row) + 1,
		})
	}

	sort.SliceStable(decls, func(i, j int) bool {
		return decls[i].Line < decls[j].Line
	})
	return decls
}

// Decls parses src with a pooled parser for l.
func Decls(l *lang.Language, src string) []model.Decl {
	q, err := l.GetDeclQuery()
	if err != nil {
		return nil
	}
	p := l.AcquireParser()
	defer l.ReleaseParser(p)
	return ExtractDecls(p, q, []byte(src))
}

// HasFunc reports whether decls declares a plain function called name.
func HasFunc(decls []model.Decl, name string) bool {
	for _, d := range decls {
		if d.Kind == model.Function && d.Name == name {
			return true
		}
	}
	return false
}

// SnippetName picks the declaration a snippet is named after: the first
// function, method or type other than the entry point, then the entry point
// itself. It returns "" when there is neither.
func SnippetName(decls []model.Decl, entry string) string {
	for _, d := range decls {
		if d.Kind == model.Package || (d.Kind == model.Function && d.Name == entry) {
			continue
		}
		return d.Name
	}
	if HasFunc(decls, entry) {
		return entry
	}
	return ""
}

// EntryPoint adapts a language to normalize.EntryPoint.
type EntryPoint struct {
	Lang *lang.Language
}

// HasEntryPoint reports whether src declares the language's entry function.
func (e EntryPoint) HasEntryPoint(src string) bool {
	return HasFunc(Decls(e.Lang, src), e.Lang.Entry)
}

// EntryStub returns the no-op entry declaration.
func (e EntryPoint) EntryStub() string {
	return e.Lang.Stub
}

// Preamble returns the language preamble when src declares no package.
func (e EntryPoint) Preamble(src string) string {
	if e.Lang.Preamble == "" {
		return ""
	}
	for _, d := range Decls(e.Lang, src) {
		if d.Kind == model.Package {
			return ""
		}
	}
	return e.Lang.Preamble
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
