package extract

import (
	"sort"
	"strings"

	"github.com/ppiankov/slant/internal/lexicon"
	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/token"
)

// Scan is the tokenized text together with every lexicon match found in it
type Scan struct {
	Text    string
	Tokens  []token.Token
	Matches []model.Match
}

// WordCount returns the number of tokens in the scanned text
func (s Scan) WordCount() int {
	return len(s.Tokens)
}

// Sentences returns the number of sentences that contain at least one token
func (s Scan) Sentences() int {
	return token.CountSentences(s.Tokens)
}

// Slice returns the source text covered by tokens [from, to)
func (s Scan) Slice(from, to int) string {
	if from < 0 || to > len(s.Tokens) || from >= to {
		return ""
	}
	return s.Text[s.Tokens[from].ByteStart:s.Tokens[to-1].ByteEnd]
}

// Matcher finds every lexicon term occurrence in a text
type Matcher struct {
	store *lexicon.Store
}

// NewMatcher creates a matcher over a lexicon store
func NewMatcher(store *lexicon.Store) *Matcher {
	return &Matcher{store: store}
}

// Scan tokenizes text and returns all term matches, ordered by position.
// Within one category and kind a match contained in a longer one is dropped;
// overlapping matches from different categories are all kept.
func (m *Matcher) Scan(text string) Scan {
	tokens := token.Tokenize(text)
	scan := Scan{Text: text, Tokens: tokens}
	if len(tokens) == 0 {
		return scan
	}

	var found []model.Match
	for i := range tokens {
		for _, term := range m.store.Candidates(tokens[i].Norm) {
			end, ok := matchAt(text, tokens, i, term.Tokens)
			if !ok {
				continue
			}
			found = append(found, model.Match{
				Category:   term.Category,
				Kind:       term.Kind,
				List:       term.List,
				Shared:     term.Shared,
				Text:       text[tokens[i].ByteStart:tokens[end-1].ByteEnd],
				Norm:       strings.Join(term.Tokens, " "),
				Start:      tokens[i].Start,
				End:        tokens[end-1].End,
				TokenStart: i,
				TokenEnd:   end,
				Sentence:   tokens[i].Sentence,
			})
		}
	}

	scan.Matches = longestOnly(found)
	sortMatches(scan.Matches)
	return scan
}

// matchAt reports whether seq matches the tokens starting at i and returns
// the index one past the last matched token. Words of a multi-word term may
// only be separated by short runs of spaces, hyphens or apostrophes within
// one sentence.
func matchAt(text string, tokens []token.Token, i int, seq []string) (int, bool) {
	end := i + len(seq)
	if end > len(tokens) {
		return 0, false
	}
	for k, want := range seq {
		tok := tokens[i+k]
		if tok.Norm != want {
			return 0, false
		}
		if k > 0 && !joinable(text[tokens[i+k-1].ByteEnd:tok.ByteStart]) {
			return 0, false
		}
	}
	return end, true
}

func joinable(gap string) bool {
	n := 0
	for _, r := range gap {
		n++
		if n > 3 {
			return false
		}
		switch r {
		case ' ', '-', '‐', '‑', '–', '\'', '’', '\t':
		default:
			return false
		}
	}
	return true
}

type matchFamily struct {
	category model.Category
	kind     model.MatchKind
	shared   bool
	list     string
}

func familyOf(m model.Match) matchFamily {
	f := matchFamily{category: m.Category, kind: m.Kind, shared: m.Shared}
	if m.Shared {
		f.category = 0
		f.list = m.List
	}
	return f
}

// longestOnly drops matches fully contained in a longer match of the same family
func longestOnly(matches []model.Match) []model.Match {
	families := make(map[matchFamily][]int)
	for i, m := range matches {
		f := familyOf(m)
		families[f] = append(families[f], i)
	}

	drop := make([]bool, len(matches))
	for _, idx := range families {
		sort.SliceStable(idx, func(a, b int) bool {
			ma, mb := matches[idx[a]], matches[idx[b]]
			if ma.TokenStart != mb.TokenStart {
				return ma.TokenStart < mb.TokenStart
			}
			return ma.TokenEnd > mb.TokenEnd
		})
		maxEnd := -1
		for _, i := range idx {
			if matches[i].TokenEnd <= maxEnd {
				drop[i] = true
				continue
			}
			maxEnd = matches[i].TokenEnd
		}
	}

	kept := matches[:0]
	for i, m := range matches {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	return kept
}

func sortMatches(matches []model.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Shared != b.Shared {
			return !a.Shared
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.List < b.List
	})
}
