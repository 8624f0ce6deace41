// Package assemble folds parsed units into a single Document.
//
// Chapters are keyed by title and sections by (chapter, section) title, so a
// chapter spread over several units, or revisited later in one unit, stays
// one node. New chapters and sections take the position where their title is
// first seen; later contributions append to them.
package assemble

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/phobologic/litbook/internal/model"
)

type sectionKey struct{ chapter, section string }

// Assembler accumulates units. Feed it units in the caller's total order;
// it is not safe for concurrent use.
type Assembler struct {
	doc      *model.Document
	chapters map[string]*model.Chapter
	sections map[sectionKey]*model.Section
	anchors  map[*model.Chapter]map[string]int
}

// New returns an empty Assembler for a document titled title.
func New(title string) *Assembler {
	return &Assembler{
		doc:      &model.Document{Title: title},
		chapters: make(map[string]*model.Chapter),
		sections: make(map[sectionKey]*model.Section),
		anchors:  make(map[*model.Chapter]map[string]int),
	}
}

// Add appends one unit's items. The unit is checked first and applied only
// if every block belongs to a section: a failing unit leaves the document
// untouched and returns a *model.StructuralError.
func (a *Assembler) Add(pu *model.ParsedUnit) error {
	if err := check(pu); err != nil {
		return err
	}

	var chapter string
	var current *model.Section
	for _, it := range pu.Items {
		switch it.Kind {
		case model.ChapterItem:
			chapter = it.Title
			current = nil
			a.chapter(chapter)
		case model.SectionItem:
			current = a.section(chapter, it.Title)
		case model.ProseItem:
			if isBlank(it.Text) {
				continue
			}
			current.Blocks = append(current.Blocks, model.Block{Kind: model.ProseBlock, Prose: it.Text})
		case model.CodeItem:
			current.Blocks = append(current.Blocks, model.Block{Kind: model.CodeBlock, Snippet: it.Snippet})
		}
	}
	return nil
}

// Document returns the assembled document.
func (a *Assembler) Document() *model.Document {
	return a.doc
}

// Build assembles units in Ordinal order; units with equal ordinals keep
// their slice order. Units that fail are left out; their errors are
// returned in the same order.
func Build(title string, units []*model.ParsedUnit) (*model.Document, []error) {
	ordered := slices.Clone(units)
	slices.SortStableFunc(ordered, func(x, y *model.ParsedUnit) int {
		return cmp.Compare(x.Unit.Ordinal, y.Unit.Ordinal)
	})

	a := New(title)
	var errs []error
	for _, pu := range ordered {
		if err := a.Add(pu); err != nil {
			errs = append(errs, err)
		}
	}
	return a.Document(), errs
}

func check(pu *model.ParsedUnit) error {
	inChapter, inSection := false, false
	for _, it := range pu.Items {
		switch it.Kind {
		case model.ChapterItem:
			inChapter, inSection = true, false
		case model.SectionItem:
			if !inChapter {
				return orphan(pu, it, "section %q before any chapter", it.Title)
			}
			inSection = true
		case model.ProseItem:
			if !inSection && !isBlank(it.Text) {
				return orphan(pu, it, "prose")
			}
		case model.CodeItem:
			if !inSection {
				return orphan(pu, it, "code fence")
			}
		}
	}
	return nil
}

func orphan(pu *model.ParsedUnit, it model.Item, format string, args ...any) error {
	return &model.StructuralError{
		Unit:   pu.Unit.Path,
		Offset: it.Offset,
		Line:   it.Line,
		Err:    fmt.Errorf("%w: "+format, append([]any{model.ErrOrphanContent}, args...)...),
	}
}

func (a *Assembler) chapter(title string) *model.Chapter {
	if ch, ok := a.chapters[title]; ok {
		return ch
	}
	ch := &model.Chapter{Title: title}
	a.chapters[title] = ch
	a.doc.Chapters = append(a.doc.Chapters, ch)
	return ch
}

func (a *Assembler) section(chapter, title string) *model.Section {
	key := sectionKey{chapter, title}
	if sec, ok := a.sections[key]; ok {
		return sec
	}
	ch := a.chapter(chapter)
	sec := &model.Section{Title: title, Anchor: a.anchor(ch, title)}
	a.sections[key] = sec
	ch.Sections = append(ch.Sections, sec)
	return sec
}

// anchor returns a slug for title unique within ch.
func (a *Assembler) anchor(ch *model.Chapter, title string) string {
	seen := a.anchors[ch]
	if seen == nil {
		seen = make(map[string]int)
		a.anchors[ch] = seen
	}
	base := model.Slug(title)
	if base == "" {
		base = "section"
	}
	seen[base]++
	if n := seen[base]; n > 1 {
		return fmt.Sprintf("%s-%d", base, n)
	}
	return base
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
