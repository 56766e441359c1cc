package score

import "github.com/ppiankov/slant/internal/model"

// Severity bands for the combined score
const (
	mildBelow     = 0.25
	moderateBelow = 0.50
)

// CombinedScore weighs the worst category above the average: 0.6*worst + 0.4*mean
func CombinedScore(flagged []float64) float64 {
	if len(flagged) == 0 {
		return 0
	}
	worst := flagged[0]
	for _, s := range flagged[1:] {
		if s > worst {
			worst = s
		}
	}
	return 0.6*worst + 0.4*mean(flagged)
}

// ClassifySeverity derives the severity label from the flagged category scores
func ClassifySeverity(flagged []float64) model.Severity {
	if len(flagged) == 0 {
		return model.SeverityNone
	}
	combined := CombinedScore(flagged)
	switch {
	case combined < mildBelow:
		return model.SeverityMild
	case combined < moderateBelow:
		return model.SeverityModerate
	default:
		return model.SeveritySevere
	}
}
