package highlight

import (
	"testing"

	"github.com/ppiankov/slant/internal/model"
)

func match(c model.Category, kind model.MatchKind, text string, start int) model.Match {
	return model.Match{Category: c, Kind: kind, Text: text, Start: start, End: start + len([]rune(text))}
}

func TestHighlight_TermsWithContext(t *testing.T) {
	text := "The nurse helped the doctor."
	matches := []model.Match{
		match(model.CategoryGender, model.KindTrait, "doctor", 21),
		match(model.CategoryGender, model.KindTrait, "nurse", 4),
	}

	got := NewHighlighter(30).Highlight(text, matches, nil, []model.Category{model.CategoryGender})
	if len(got) != 2 {
		t.Fatalf("expected 2 highlights, got %d", len(got))
	}
	if got[0].Term != "nurse" || got[0].Start != 4 || got[0].End != 9 {
		t.Errorf("unexpected first highlight %+v", got[0])
	}
	if got[1].Term != "doctor" || got[1].Start != 21 {
		t.Errorf("unexpected second highlight %+v", got[1])
	}
	if got[0].Context != text {
		t.Errorf("expected context clamped to whole text, got %q", got[0].Context)
	}
}

func TestHighlight_ContextWindow(t *testing.T) {
	text := "aaaaa bbbbb nurse ccccc ddddd"
	m := match(model.CategoryGender, model.KindTrait, "nurse", 12)

	tests := []struct {
		width int
		want  string
	}{
		{0, "nurse"},
		{6, "bbbbb nurse ccccc"},
		{100, text},
	}
	for _, tt := range tests {
		got := NewHighlighter(tt.width).Highlight(text, []model.Match{m}, nil, []model.Category{model.CategoryGender})
		if len(got) != 1 || got[0].Context != tt.want {
			t.Errorf("width %d: got %+v, want context %q", tt.width, got, tt.want)
		}
	}
}

func TestHighlight_ContextCountsCharacters(t *testing.T) {
	text := "ééé nurse ééé"
	m := match(model.CategoryGender, model.KindTrait, "nurse", 4)
	got := NewHighlighter(2).Highlight(text, []model.Match{m}, nil, []model.Category{model.CategoryGender})
	if len(got) != 1 || got[0].Context != "é nurse é" {
		t.Errorf("unexpected context %+v", got)
	}
}

func TestHighlight_OnlyRequestedCategories(t *testing.T) {
	text := "welfare queens everywhere"
	matches := []model.Match{
		match(model.CategoryRace, model.KindTrait, "welfare", 0),
		match(model.CategorySocioeconomic, model.KindTrait, "welfare queens", 0),
	}
	got := NewHighlighter(30).Highlight(text, matches, nil, []model.Category{model.CategorySocioeconomic})
	if len(got) != 1 || got[0].Category != model.CategorySocioeconomic {
		t.Errorf("expected only socioeconomic highlight, got %+v", got)
	}

	if got := NewHighlighter(30).Highlight(text, matches, nil, nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result without categories, got %v", got)
	}
	if got := NewHighlighter(30).Highlight(text, matches, nil, []model.Category{model.Category(42)}); len(got) != 0 {
		t.Errorf("expected invalid category to be ignored, got %v", got)
	}
}

func TestHighlight_DedupeFirstCategoryWins(t *testing.T) {
	text := "radical views"
	matches := []model.Match{
		match(model.CategoryPolitical, model.KindTrait, "radical", 0),
		match(model.CategoryReligion, model.KindTrait, "radical", 0),
	}
	got := NewHighlighter(30).Highlight(text, matches, nil,
		[]model.Category{model.CategoryPolitical, model.CategoryReligion})
	if len(got) != 1 {
		t.Fatalf("expected one highlight per span, got %+v", got)
	}
	if got[0].Category != model.CategoryReligion {
		t.Errorf("expected religion (earlier in declaration order), got %s", got[0].Category)
	}
}

func TestHighlight_FiringEvidence(t *testing.T) {
	text := "She is surprisingly smart for a woman."
	shared := model.Match{Kind: model.KindTrait, Shared: true, List: "shared.positive_traits", Text: "smart", Start: 20, End: 25}
	phrase := model.Match{Category: model.CategoryGender, Kind: model.KindPattern, Text: "surprisingly", Start: 7, End: 19}
	group := match(model.CategoryGender, model.KindGroup, "woman", 32)
	firings := []model.Firing{{
		Category: model.CategoryGender,
		Rule:     "backhanded_compliment",
		Evidence: []model.Match{phrase, shared, group},
	}}

	got := NewHighlighter(30).Highlight(text, []model.Match{group, shared}, firings, []model.Category{model.CategoryGender})
	if len(got) != 3 {
		t.Fatalf("expected 3 highlights, got %+v", got)
	}
	want := []string{"surprisingly", "smart", "woman"}
	for i, w := range want {
		if got[i].Term != w {
			t.Errorf("highlight %d: got %q, want %q", i, got[i].Term, w)
		}
	}
	if got[2].Kind != model.KindGroup {
		t.Errorf("expected term kind to win over evidence for the same span, got %s", got[2].Kind)
	}
	if got[1].Category != model.CategoryGender {
		t.Errorf("expected shared evidence attributed to the firing category, got %s", got[1].Category)
	}
}

func TestHighlight_Ordering(t *testing.T) {
	text := "inner city kids"
	matches := []model.Match{
		match(model.CategoryRace, model.KindTrait, "inner city", 0),
		match(model.CategoryAge, model.KindGroup, "kids", 11),
		match(model.CategoryGender, model.KindTrait, "inner", 0),
	}
	got := NewHighlighter(0).Highlight(text, matches, nil, model.AllCategories())
	if len(got) != 3 {
		t.Fatalf("expected 3 highlights, got %+v", got)
	}
	for i := 1; i < len(got); i++ {
		a, b := got[i-1], got[i]
		if a.Start > b.Start || (a.Start == b.Start && a.End > b.End) {
			t.Errorf("highlights out of order: %+v before %+v", a, b)
		}
	}
	if got[0].Term != "inner" || got[1].Term != "inner city" {
		t.Errorf("expected shorter span first on equal start, got %+v", got)
	}
}

func TestHighlight_EmptyText(t *testing.T) {
	got := NewHighlighter(30).Highlight("", nil, nil, model.AllCategories())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}
