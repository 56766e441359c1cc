// Package highlight locates the evidence behind flagged categories in the
// original text and attaches a fixed-width context window to each span.
package highlight

import (
	"sort"

	"github.com/ppiankov/slant/internal/model"
)

// Highlighter builds highlights from matches and rule firings
type Highlighter struct {
	width int
}

// NewHighlighter creates a highlighter with width characters of context on each side
func NewHighlighter(width int) *Highlighter {
	if width < 0 {
		width = 0
	}
	return &Highlighter{width: width}
}

// Highlight returns every term span and pattern-evidence span belonging to
// one of categories, deduplicated by span and ordered by start, end, then
// category declaration order. Shared-list spans appear only as firing evidence.
func (h *Highlighter) Highlight(text string, matches []model.Match, firings []model.Firing, categories []model.Category) []model.Highlight {
	wanted := [model.NumCategories]bool{}
	selected := false
	for _, c := range categories {
		if c.Valid() {
			wanted[c] = true
			selected = true
		}
	}
	if !selected || text == "" {
		return []model.Highlight{}
	}

	runes := []rune(text)
	seen := make(map[model.Span]bool)
	var out []model.Highlight

	add := func(c model.Category, m model.Match) {
		span := m.Span()
		if seen[span] {
			return
		}
		seen[span] = true
		out = append(out, model.Highlight{
			Term:     m.Text,
			Start:    m.Start,
			End:      m.End,
			Context:  h.context(runes, m.Start, m.End),
			Category: c,
			Kind:     m.Kind,
		})
	}

	// Category order decides which category keeps a span shared by several
	for _, c := range model.AllCategories() {
		if !wanted[c] {
			continue
		}
		for _, m := range matches {
			if !m.Shared && m.Category == c {
				add(c, m)
			}
		}
		for _, f := range firings {
			if f.Category != c {
				continue
			}
			for _, m := range f.Evidence {
				add(c, m)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		return out[i].Category < out[j].Category
	})

	if out == nil {
		out = []model.Highlight{}
	}
	return out
}

// context returns runes[start-width : end+width], clamped to the text
func (h *Highlighter) context(runes []rune, start, end int) string {
	from := start - h.width
	if from < 0 {
		from = 0
	}
	to := end + h.width
	if to > len(runes) {
		to = len(runes)
	}
	if from > to {
		return ""
	}
	return string(runes[from:to])
}
