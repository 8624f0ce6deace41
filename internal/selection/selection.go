// Package selection narrows a run to part of the document.
package selection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/litbook/internal/model"
)

// Chapters returns a new Document holding only the chapters whose title
// contains one of titles (case-insensitive), in document order. With no
// titles the document is returned unchanged.
func Chapters(doc *model.Document, titles []string) *model.Document {
	if len(titles) == 0 {
		return doc
	}

	lower := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			lower = append(lower, strings.ToLower(t))
		}
	}
	if len(lower) == 0 {
		return doc
	}

	var chapters []*model.Chapter
	for _, ch := range doc.Chapters {
		title := strings.ToLower(ch.Title)
		for _, want := range lower {
			if strings.Contains(title, want) {
				chapters = append(chapters, ch)
				break
			}
		}
	}

	return &model.Document{
		Title:    doc.Title,
		Chapters: chapters,
	}
}

// Matcher compiles pattern into a snippet filter matching snippet IDs. An
// empty pattern yields a nil filter, which selects everything.
func Matcher(pattern string) (func(*model.Snippet) bool, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid -run pattern: %w", err)
	}
	return func(sn *model.Snippet) bool {
		return re.MatchString(sn.ID)
	}, nil
}

// Titles splits a comma-separated chapter list.
func Titles(list string) []string {
	if list == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(list, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
