package score

import "github.com/ppiankov/slant/internal/model"

// Summary aggregates detection results across a batch of documents
type Summary struct {
	Documents    int                        `json:"documents"`
	Flagged      int                        `json:"flagged"`
	Distribution map[model.Category]int     `json:"category_distribution"` // Documents flagging each category
	MeanScores   map[model.Category]float64 `json:"mean_scores"`           // Mean score per category, 0 where absent
	Severities   map[model.Severity]int     `json:"severities"`
	MaxSeverity  model.Severity             `json:"max_severity"`
	Overall      float64                    `json:"mean_overall_score"`
}

// Aggregate summarises many detection results
func Aggregate(results []model.DetectionResult) Summary {
	s := Summary{
		Documents:    len(results),
		Distribution: make(map[model.Category]int),
		MeanScores:   make(map[model.Category]float64),
		Severities:   make(map[model.Severity]int),
		MaxSeverity:  model.SeverityNone,
	}
	if len(results) == 0 {
		return s
	}

	seen := [model.NumCategories]bool{}
	overall := 0.0
	for _, r := range results {
		if r.HasBias {
			s.Flagged++
		}
		for _, c := range r.Categories {
			s.Distribution[c]++
		}
		for c := range r.Scores {
			if c.Valid() {
				seen[c] = true
			}
		}
		s.Severities[r.Severity]++
		if r.Severity.Rank() > s.MaxSeverity.Rank() {
			s.MaxSeverity = r.Severity
		}
		overall += r.OverallScore
	}

	for _, c := range model.AllCategories() {
		if !seen[c] {
			continue
		}
		sum := 0.0
		for _, r := range results {
			sum += r.Scores[c]
		}
		s.MeanScores[c] = Round(sum/float64(len(results)), 3)
	}
	s.Overall = Round(overall/float64(len(results)), 3)

	return s
}

// BiasDensity is the number of bias instances per 100 words, to 2 decimals
func BiasDensity(words, instances int) float64 {
	if words <= 0 {
		return 0
	}
	return Round(float64(instances)/float64(words)*100, 2)
}
