package pipeline

import (
	"sort"
	"unicode/utf8"

	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/score"
	"github.com/ppiankov/slant/internal/token"
)

const topWordCount = 20

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"is": true, "was": true, "are": true, "were": true,
}

// ComputeStats summarises text; evidence is the number of highlighted spans
func ComputeStats(text string, evidence int) model.TextStats {
	tokens := token.Tokenize(text)
	stats := model.TextStats{
		WordCount:     len(tokens),
		CharCount:     utf8.RuneCountInString(text),
		SentenceCount: token.CountSentences(tokens),
		BiasDensity:   score.BiasDensity(len(tokens), evidence),
		TopWords:      topWords(tokens, topWordCount),
	}
	if stats.WordCount == 0 {
		return stats
	}

	chars := 0
	for _, t := range tokens {
		chars += t.End - t.Start
	}
	stats.AvgWordLength = score.Round(float64(chars)/float64(stats.WordCount), 2)
	stats.AvgSentenceLength = score.Round(float64(stats.WordCount)/float64(stats.SentenceCount), 2)
	return stats
}

// topWords counts folded words longer than two characters, skipping stop words
func topWords(tokens []token.Token, n int) map[string]int {
	counts := make(map[string]int)
	for _, t := range tokens {
		if stopWords[t.Norm] || t.End-t.Start <= 2 {
			continue
		}
		counts[t.Norm]++
	}
	if len(counts) <= n {
		return counts
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	top := make(map[string]int, n)
	for _, w := range words[:n] {
		top[w] = counts[w]
	}
	return top
}

// Recommendations returns rewrite advice for the flagged categories
func Recommendations(result model.DetectionResult) []string {
	if !result.HasBias {
		return []string{"No significant bias detected. The text appears balanced."}
	}

	recs := make([]string, 0, len(result.Categories)+1)
	for _, c := range result.Categories {
		recs = append(recs, c.Info().Recommendation)
	}
	if result.Severity == model.SeveritySevere {
		recs = append(recs, "⚠️ High bias detected. Consider significant revision of the text.")
	}
	return recs
}
