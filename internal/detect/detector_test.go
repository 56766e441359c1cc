package detect

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/slant/internal/lexicon"
	"github.com/ppiankov/slant/internal/model"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}
	return d
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil, model.DefaultDetectionConfig()); !errors.Is(err, ErrNilStore) {
		t.Errorf("expected ErrNilStore, got %v", err)
	}

	store, err := lexicon.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg := model.DefaultDetectionConfig()
	cfg.Window = 0
	if _, err := New(store, cfg); !errors.Is(err, model.ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestDetect_Scenarios(t *testing.T) {
	d := newDetector(t)

	tests := []struct {
		name       string
		text       string
		hasBias    bool
		categories []model.Category // Must all be flagged
		severities []model.Severity // Any of, when set
		minFlagged int
	}{
		{
			name:       "neutral",
			text:       "The sky is blue and the grass is green.",
			severities: []model.Severity{model.SeverityNone},
		},
		{
			name:       "gendered occupations",
			text:       "The female nurse assisted the male doctor with surgery.",
			hasBias:    true,
			categories: []model.Category{model.CategoryGender},
		},
		{
			name:       "religious stereotype",
			text:       "Muslim immigrants are likely to be terrorists.",
			hasBias:    true,
			categories: []model.Category{model.CategoryReligion},
			severities: []model.Severity{model.SeverityModerate, model.SeveritySevere},
		},
		{
			name:       "empty",
			text:       "",
			severities: []model.Severity{model.SeverityNone},
		},
		{
			name:       "backhanded across categories",
			text:       "The female nurse from the inner-city was surprisingly competent, unlike most women in business.",
			hasBias:    true,
			categories: []model.Category{model.CategoryGender, model.CategoryRace},
			severities: []model.Severity{model.SeveritySevere},
			minFlagged: 2,
		},
		{
			name:       "bare occupations",
			text:       "The nurse helped the doctor.",
			hasBias:    true,
			categories: []model.Category{model.CategoryGender},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Detect(tt.text)
			if result.HasBias != tt.hasBias {
				t.Fatalf("HasBias = %v, want %v (scores %v)", result.HasBias, tt.hasBias, result.Scores)
			}
			if !tt.hasBias && len(result.Categories) != 0 {
				t.Errorf("expected no categories, got %v", result.Categories)
			}
			for _, c := range tt.categories {
				if !result.Flagged(c) {
					t.Errorf("expected %s flagged, got %v (scores %v)", c, result.Categories, result.Scores)
				}
			}
			if len(tt.severities) > 0 && !containsSeverity(tt.severities, result.Severity) {
				t.Errorf("severity %s not in %v", result.Severity, tt.severities)
			}
			if len(result.Categories) < tt.minFlagged {
				t.Errorf("expected at least %d categories, got %v", tt.minFlagged, result.Categories)
			}
		})
	}
}

func TestDetect_FlaggedExamples(t *testing.T) {
	d := newDetector(t)

	tests := []struct {
		text     string
		category model.Category
	}{
		{"Women are emotional and irrational.", model.CategoryGender},
		{"She is surprisingly competent for a woman.", model.CategoryGender},
		{"He is an excellent engineer, while she makes a great secretary.", model.CategoryGender},
		{"girls are stupid whereas men are really smart", model.CategoryGender},
		{"Women are too emotional to lead.", model.CategoryGender},
		{"The inner-city youth were suspected of the crime.", model.CategoryRace},
		{"Asian students are naturally gifted at math.", model.CategoryRace},
		{"Muslim extremist terrorists attacked the building.", model.CategoryReligion},
		{"Radical leftists are destroying our country.", model.CategoryPolitical},
		{"The radical liberal activist extremists are destroying our country.", model.CategoryPolitical},
		{"Poor people are lazy and looking for handouts.", model.CategorySocioeconomic},
		{"Poor people are lazy and uneducated.", model.CategorySocioeconomic},
		{"The elderly worker is too old to learn new technology.", model.CategoryAge},
		{"Millennials are entitled and lazy.", model.CategoryAge},
	}
	for _, tt := range tests {
		result := d.Detect(tt.text)
		if !result.HasBias || !result.Flagged(tt.category) {
			t.Errorf("%q: expected %s flagged, got %v (scores %v)", tt.text, tt.category, result.Categories, result.Scores)
		}
	}
}

func TestDetect_NeutralMentions(t *testing.T) {
	d := newDetector(t)

	tests := []struct {
		text     string
		category model.Category
	}{
		{"The employee completed the project on time.", model.CategoryGender},
		{"He went to the store. She bought groceries. They had a good day.", model.CategoryGender},
		{"The study included participants of various ethnicities including Asian, Black, and White individuals.", model.CategoryRace},
		{"The city has churches, mosques, and temples.", model.CategoryReligion},
		{"The church, mosque, and temple are all places of worship.", model.CategoryReligion},
		{"The study included participants from various economic backgrounds.", model.CategorySocioeconomic},
		{"The program serves both wealthy and poor communities.", model.CategorySocioeconomic},
		{"The team includes both young and experienced workers.", model.CategoryAge},
		{"The election featured both Republican and Democratic candidates.", model.CategoryPolitical},
	}
	for _, tt := range tests {
		if result := d.Detect(tt.text); result.Flagged(tt.category) {
			t.Errorf("%q: did not expect %s flagged (scores %v)", tt.text, tt.category, result.Scores)
		}
	}
}

func TestDetect_SeverityBands(t *testing.T) {
	d := newDetector(t)

	tests := []struct {
		text string
		want []model.Severity
	}{
		{"He works as an engineer.", []model.Severity{model.SeverityNone, model.SeverityMild}},
		{"Women are naturally better at nursing than engineering.", []model.Severity{model.SeverityMild, model.SeverityModerate}},
		{"Muslim refugees are terrorists. The inner-city youth are criminals. Women are stupid and emotional.",
			[]model.Severity{model.SeverityModerate, model.SeveritySevere}},
	}
	for _, tt := range tests {
		if got := d.Detect(tt.text).Severity; !containsSeverity(tt.want, got) {
			t.Errorf("%q: severity %s not in %v", tt.text, got, tt.want)
		}
	}
}

func TestDetect_MultipleCategories(t *testing.T) {
	d := newDetector(t)
	result := d.Detect("The female nurse from the inner-city was surprisingly articulate.")
	if len(result.Categories) < 2 {
		t.Errorf("expected at least two categories, got %v", result.Categories)
	}
}

func TestDetect_DegradedInput(t *testing.T) {
	d := newDetector(t)
	for _, text := range []string{
		strings.Repeat("The weather is nice. ", 1000),
		"The nurse@#$% helped the doctor!!!",
		"The nurse helped the café owner. 你好世界",
		"\xff\xfe nurse \x80",
		"...!!!???",
	} {
		result := d.Detect(text)
		if result.Scores == nil || result.Categories == nil {
			t.Errorf("%q: expected initialised result, got %+v", text, result)
		}
	}

	if d.Detect(strings.Repeat("The weather is nice. ", 1000)).HasBias {
		t.Error("repeated neutral sentence must not be flagged")
	}
}

func TestDetect_GroupMentionNeverFlags(t *testing.T) {
	d := newDetector(t)
	for _, text := range []string{
		"She arrived.",
		"The church.",
		"Conservatives and liberals voted.",
		"Muslims, Christians, Jews, Hindus and Buddhists.",
	} {
		if result := d.Detect(text); result.HasBias {
			t.Errorf("%q: group mentions alone flagged %v", text, result.Categories)
		}
	}
}

func TestDetect_Deterministic(t *testing.T) {
	d := newDetector(t)
	text := "The female nurse from the inner-city was surprisingly competent, unlike most women in business."
	first := d.Detect(text)
	for i := 0; i < 5; i++ {
		if got := d.Detect(text); !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, got)
		}
	}
}

func TestDetect_Concurrent(t *testing.T) {
	d := newDetector(t)
	texts := []string{
		"The female nurse assisted the male doctor with surgery.",
		"Muslim immigrants are likely to be terrorists.",
		"Millennials are entitled and lazy.",
		"The sky is blue.",
	}
	want := make([]model.DetectionResult, len(texts))
	for i, text := range texts {
		want[i] = d.Detect(text)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, text := range texts {
				if got := d.Detect(text); !reflect.DeepEqual(got, want[i]) {
					errs <- text
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for text := range errs {
		t.Errorf("concurrent result differs for %q", text)
	}
}

func TestDetectValue(t *testing.T) {
	d := newDetector(t)

	result, err := d.DetectValue("The nurse helped the doctor.")
	if err != nil || !result.HasBias {
		t.Errorf("expected string input to be scored, got %+v, %v", result, err)
	}

	tests := []struct {
		value any
		got   string
	}{
		{nil, "null"},
		{42.0, "number"},
		{true, "boolean"},
		{[]any{"a"}, "array"},
		{map[string]any{"text": "a"}, "object"},
		{[]byte("text"), "[]uint8"},
	}
	for _, tt := range tests {
		_, err := d.DetectValue(tt.value)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%v: expected ErrInvalidInput, got %v", tt.value, err)
			continue
		}
		var inputErr *InvalidInputError
		if !errors.As(err, &inputErr) || inputErr.Got != tt.got {
			t.Errorf("%v: expected type %q, got %v", tt.value, tt.got, err)
		}
	}
}

func TestHighlight_OccupationOffsets(t *testing.T) {
	d := newDetector(t)
	text := "The nurse helped the doctor."
	highlights := d.Highlight(text, []model.Category{model.CategoryGender})
	if len(highlights) == 0 {
		t.Fatal("expected highlights")
	}

	runes := []rune(text)
	found := false
	for _, h := range highlights {
		if string(runes[h.Start:h.End]) != h.Term {
			t.Errorf("offsets [%d,%d) do not cover %q", h.Start, h.End, h.Term)
		}
		if h.Term == "nurse" || h.Term == "doctor" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an occupation term, got %+v", highlights)
	}
	if highlights[0].Term != "nurse" || highlights[0].Start != 4 || highlights[0].End != 9 {
		t.Errorf("unexpected first highlight %+v", highlights[0])
	}
}

func TestHighlight_SortedAndIdempotent(t *testing.T) {
	d := newDetector(t)
	text := "The elderly nurse was too old to work with the female doctor."
	cats := []model.Category{model.CategoryGender, model.CategoryAge}

	first := d.Highlight(text, cats)
	if len(first) == 0 {
		t.Fatal("expected highlights")
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Start > first[i].Start {
			t.Errorf("highlights out of order at %d: %+v", i, first)
		}
	}
	seen := make(map[model.Span]bool)
	for _, h := range first {
		span := model.Span{Start: h.Start, End: h.End}
		if seen[span] {
			t.Errorf("duplicate span %+v", span)
		}
		seen[span] = true
	}
	if second := d.Highlight(text, cats); !reflect.DeepEqual(first, second) {
		t.Errorf("highlight not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestHighlight_UnflaggedCategory(t *testing.T) {
	d := newDetector(t)
	got := d.Highlight("The team includes both young and experienced workers.", []model.Category{model.CategoryAge})
	if len(got) != 0 {
		t.Errorf("expected no highlights for an unflagged category, got %+v", got)
	}
	if got := d.Highlight("The nurse helped the doctor.", nil); len(got) != 0 {
		t.Errorf("expected no highlights without categories, got %+v", got)
	}
}

func TestAnalyze(t *testing.T) {
	d := newDetector(t)
	text := "The female nurse assisted the male doctor. Nobody minded."
	a := d.Analyze(text)

	if !reflect.DeepEqual(a.Result, d.Detect(text)) {
		t.Error("Analyze result differs from Detect")
	}
	if !reflect.DeepEqual(a.Highlights, d.Highlight(text, a.Result.Categories)) {
		t.Error("Analyze highlights differ from Highlight")
	}
	if a.Words != 9 || a.Sentences != 2 {
		t.Errorf("expected 9 words in 2 sentences, got %d/%d", a.Words, a.Sentences)
	}
	if len(a.Firings) == 0 || len(a.Matches) == 0 {
		t.Errorf("expected matches and firings, got %d/%d", len(a.Matches), len(a.Firings))
	}
}

func TestDetect_InjectedLexicon(t *testing.T) {
	var b strings.Builder
	b.WriteString("categories:\n")
	for _, c := range model.AllCategories() {
		b.WriteString("  " + c.String() + ":\n")
		b.WriteString("    groups:\n      side: [" + c.String() + "folk]\n")
		b.WriteString("    traits:\n      words: [" + c.String() + "ish]\n")
	}
	store, err := lexicon.Load([]byte(b.String()), "test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d, err := New(store, model.DefaultDetectionConfig())
	if err != nil {
		t.Fatal(err)
	}

	if d.Detect("The nurse helped the doctor.").HasBias {
		t.Error("built-in vocabulary must not leak into an injected lexicon")
	}
	result := d.Detect("Agefolk are so ageish.")
	if !result.Flagged(model.CategoryAge) || len(result.Categories) != 1 {
		t.Errorf("expected only age flagged, got %v", result.Categories)
	}
	if d.Store() != store {
		t.Error("Store must return the injected lexicon")
	}
}

func containsSeverity(list []model.Severity, s model.Severity) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
