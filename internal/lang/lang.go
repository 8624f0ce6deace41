// Package lang provides the registry of snippet languages: how the lexer
// reads their code, how oracle lines are spelled, and the tree-sitter
// grammar and embedded query used to find their declarations.
package lang

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/litbook/internal/lexer"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Language holds the configuration for a supported snippet language.
type Language struct {
	Name    string
	Aliases []string
	Syntax  lexer.Syntax

	// Entry is the name of the function the toolchain starts from; Stub is
	// a no-op declaration of it, appended when a snippet lacks one.
	Entry string
	Stub  string

	// Preamble starts every program that has no package declaration of
	// its own. Empty for languages without one.
	Preamble string

	lang      *sitter.Language
	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error
	parsers   sync.Pool
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// AcquireParser returns a pooled parser; hand it back with ReleaseParser.
func (l *Language) AcquireParser() *sitter.Parser {
	if p, ok := l.parsers.Get().(*sitter.Parser); ok {
		return p
	}
	return l.NewParser()
}

// ReleaseParser returns p to the pool.
func (l *Language) ReleaseParser(p *sitter.Parser) {
	l.parsers.Put(p)
}

// GetDeclQuery returns the compiled declarations query (safe to share
// across goroutines).
func (l *Language) GetDeclQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", l.Name))
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// aliasMap is built lazily after all init() functions have run.
var aliasMap map[string]*Language
var aliasOnce sync.Once

func getAliasMap() map[string]*Language {
	aliasOnce.Do(func() {
		aliasMap = make(map[string]*Language)
		for name, l := range Languages {
			aliasMap[name] = l
			for _, a := range l.Aliases {
				aliasMap[a] = l
			}
		}
	})
	return aliasMap
}

// Lookup returns the language registered under name or one of its aliases.
func Lookup(name string) (*Language, bool) {
	l, ok := getAliasMap()[name]
	return l, ok
}

// Resolve adapts Lookup for the lexer.
func Resolve(name string) (*lexer.Syntax, bool) {
	l, ok := Lookup(name)
	if !ok {
		return nil, false
	}
	return &l.Syntax, true
}

// Names returns the registered language names, sorted.
func Names() []string {
	names := make([]string, 0, len(Languages))
	for name := range Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
