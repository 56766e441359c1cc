package pipeline

import (
	"strings"
	"testing"

	"github.com/ppiankov/slant/internal/model"
)

func TestComputeStats(t *testing.T) {
	stats := ComputeStats("Nurses work hard. Doctors work hard too!", 2)

	if stats.WordCount != 7 {
		t.Errorf("WordCount = %d, want 7", stats.WordCount)
	}
	if stats.SentenceCount != 2 {
		t.Errorf("SentenceCount = %d, want 2", stats.SentenceCount)
	}
	if stats.CharCount != 40 {
		t.Errorf("CharCount = %d, want 40", stats.CharCount)
	}
	// 6+4+4+7+4+4+3 = 32 letters over 7 words
	if stats.AvgWordLength != 4.57 {
		t.Errorf("AvgWordLength = %v, want 4.57", stats.AvgWordLength)
	}
	if stats.AvgSentenceLength != 3.5 {
		t.Errorf("AvgSentenceLength = %v, want 3.5", stats.AvgSentenceLength)
	}
	if stats.BiasDensity != 28.57 {
		t.Errorf("BiasDensity = %v, want 28.57", stats.BiasDensity)
	}
	if stats.TopWords["work"] != 2 || stats.TopWords["hard"] != 2 {
		t.Errorf("unexpected top words %v", stats.TopWords)
	}
	if _, ok := stats.TopWords["too"]; !ok {
		t.Errorf("expected three-letter word counted, got %v", stats.TopWords)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats("   ", 0)
	if stats.WordCount != 0 || stats.SentenceCount != 0 || stats.AvgWordLength != 0 || stats.BiasDensity != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
	if stats.CharCount != 3 {
		t.Errorf("CharCount = %d, want 3", stats.CharCount)
	}
}

func TestTopWords_StopWordsAndLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("the and ")
		b.WriteString(string(rune('a'+i%26)) + "xx" + string(rune('a'+i/26)) + " ")
	}
	b.WriteString("zebra zebra zebra")

	stats := ComputeStats(b.String(), 0)
	if len(stats.TopWords) != topWordCount {
		t.Fatalf("expected %d top words, got %d", topWordCount, len(stats.TopWords))
	}
	if stats.TopWords["zebra"] != 3 {
		t.Errorf("expected most frequent word kept, got %v", stats.TopWords)
	}
	for _, stop := range []string{"the", "and"} {
		if _, ok := stats.TopWords[stop]; ok {
			t.Errorf("stop word %q counted", stop)
		}
	}
	// Ties break alphabetically, so the earliest words survive
	if _, ok := stats.TopWords["axxa"]; !ok {
		t.Errorf("expected alphabetical tie-break to keep axxa, got %v", stats.TopWords)
	}
}

func TestRecommendations(t *testing.T) {
	none := Recommendations(model.DetectionResult{Severity: model.SeverityNone})
	if len(none) != 1 || !strings.Contains(none[0], "No significant bias") {
		t.Errorf("unexpected neutral recommendations %v", none)
	}

	moderate := Recommendations(model.DetectionResult{
		HasBias:    true,
		Categories: []model.Category{model.CategoryGender, model.CategoryAge},
		Severity:   model.SeverityModerate,
	})
	if len(moderate) != 2 {
		t.Fatalf("expected one recommendation per category, got %v", moderate)
	}
	if moderate[0] != model.CategoryGender.Info().Recommendation {
		t.Errorf("unexpected first recommendation %q", moderate[0])
	}

	severe := Recommendations(model.DetectionResult{
		HasBias:    true,
		Categories: []model.Category{model.CategoryRace},
		Severity:   model.SeveritySevere,
	})
	if len(severe) != 2 || !strings.Contains(severe[1], "High bias detected") {
		t.Errorf("expected revision warning for severe results, got %v", severe)
	}
}
