// Package extract turns source units into parsed item streams: markers are
// lexed, every fence is normalized, its oracle extracted and its snippet
// named. Units are independent, so they are processed in parallel and
// handed back in input order.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/phobologic/litbook/internal/lang"
	"github.com/phobologic/litbook/internal/lexer"
	"github.com/phobologic/litbook/internal/model"
	"github.com/phobologic/litbook/internal/normalize"
	"github.com/phobologic/litbook/internal/oracle"
	"github.com/phobologic/litbook/internal/parse"
)

const noRunAttr = "norun"

// Extractor holds settings shared by all units.
type Extractor struct {
	// DefaultLanguage applies to fences without a language when the unit
	// itself does not name one.
	DefaultLanguage string
}

// Unit extracts one source unit. Any structural error is returned as a
// *model.StructuralError carrying the unit path.
func (x *Extractor) Unit(u model.SourceUnit) (*model.ParsedUnit, error) {
	def := u.Language
	if def == "" {
		def = x.DefaultLanguage
	}

	toks, err := lexer.Lex(u.Path, u.Text, def, lang.Resolve)
	if err != nil {
		return nil, err
	}

	pu := &model.ParsedUnit{Unit: u}
	names := make(map[string]bool)
	count := 0

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Kind {
		case lexer.ChapterTag:
			pu.Items = append(pu.Items, model.Item{Kind: model.ChapterItem, Title: tok.Payload, Offset: tok.Offset, Line: tok.Line})
		case lexer.SectionTag:
			pu.Items = append(pu.Items, model.Item{Kind: model.SectionItem, Title: tok.Payload, Offset: tok.Offset, Line: tok.Line})
		case lexer.Text:
			pu.Items = append(pu.Items, model.Item{Kind: model.ProseItem, Text: tok.Raw, Offset: tok.Offset, Line: tok.Line})
		case lexer.FenceOpen:
			end := i + 1
			for end < len(toks) && toks[end].Kind != lexer.FenceClose {
				end++
			}
			count++
			sn, err := x.snippet(u.Path, def, tok, toks[i+1:end], count, names)
			if err != nil {
				return nil, err
			}
			pu.Items = append(pu.Items, model.Item{Kind: model.CodeItem, Snippet: sn, Offset: tok.Offset, Line: tok.Line})
			i = end
		}
	}
	return pu, nil
}

func (x *Extractor) snippet(unit, def string, open lexer.Token, body []lexer.Token, ordinal int, names map[string]bool) (*model.Snippet, error) {
	info := strings.Fields(open.Payload)
	langName := def
	if len(info) > 0 {
		langName = info[0]
		info = info[1:]
	}
	l, ok := lang.Lookup(langName)
	if !ok {
		return nil, &model.StructuralError{Unit: unit, Offset: open.Offset, Line: open.Line, Err: fmt.Errorf("%w %q", model.ErrUnknownLanguage, langName)}
	}

	forms, err := normalize.Normalize(body, parse.EntryPoint{Lang: l})
	if err != nil {
		var se *model.StructuralError
		if errors.As(err, &se) {
			se.Unit = unit
		}
		return nil, err
	}

	var name string
	noRun := false
	for _, attr := range info {
		switch {
		case attr == noRunAttr:
			noRun = true
		case name == "":
			name = attr
		}
	}
	if name == "" {
		name = parse.SnippetName(parse.Decls(l, forms.Display), l.Entry)
	}
	if name == "" {
		name = parse.SnippetName(parse.Decls(l, forms.Exec), l.Entry)
	}
	if name == "" {
		name = fmt.Sprintf("example%d", ordinal)
	}
	name = uniqueName(name, names)

	return &model.Snippet{
		ID:       filepath.ToSlash(unit) + "#" + name,
		Name:     name,
		Unit:     unit,
		Line:     open.Line,
		Language: l.Name,
		Display:  forms.Display,
		Exec:     forms.Exec,
		Oracle:   oracle.Extract(forms.Exec, &l.Syntax),
		NoRun:    noRun,
	}, nil
}

// uniqueName returns base, or base-2, base-3 and so on, whichever is the
// first not yet in used, and records it.
func uniqueName(base string, used map[string]bool) string {
	name := base
	for n := 2; used[name]; n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	used[name] = true
	return name
}

// Result is the outcome for one unit. Skipped is set when fail-fast
// cancelled the run before the unit was processed.
type Result struct {
	Unit    *model.ParsedUnit
	Err     error
	Skipped bool
}

// Concurrent extracts units on up to workers goroutines (GOMAXPROCS when
// workers <= 0). Results are indexed like units regardless of completion
// order. With failFast, the first structural error cancels units not yet
// started.
func Concurrent(ctx context.Context, x *Extractor, units []model.SourceUnit, workers int, failFast bool) []Result {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(units) {
		workers = len(units)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		index int
		res   Result
	}

	work := make(chan int, len(units))
	results := make(chan result, len(units))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					results <- result{index: idx, res: Result{Skipped: true}}
					continue
				}
				pu, err := x.Unit(units[idx])
				if err != nil && failFast {
					cancel()
				}
				results <- result{index: idx, res: Result{Unit: pu, Err: err}}
			}
		}()
	}

	for i := range units {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]Result, len(units))
	for r := range results {
		indexed[r.index] = r.res
	}
	return indexed
}
