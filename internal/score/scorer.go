package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/slant/internal/model"
)

// Scorer converts matches and rule firings into per-category scores and signals
type Scorer struct {
	cfg model.DetectionConfig
}

// NewScorer creates a new scorer
func NewScorer(cfg model.DetectionConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// categoryEvidence is everything counted toward one category
type categoryEvidence struct {
	groups  int
	traits  int
	firings []model.Firing
}

func (e categoryEvidence) empty() bool {
	return e.groups == 0 && e.traits == 0 && len(e.firings) == 0
}

// Calculate scores every category with at least one match and builds the result.
// Shared-list matches only count through the rules that use them.
func (s *Scorer) Calculate(matches []model.Match, firings []model.Firing) model.DetectionResult {
	var evidence [model.NumCategories]categoryEvidence
	for _, m := range matches {
		if m.Shared || !m.Category.Valid() {
			continue
		}
		switch m.Kind {
		case model.KindGroup:
			evidence[m.Category].groups++
		case model.KindTrait:
			evidence[m.Category].traits++
		}
	}
	for _, f := range firings {
		if f.Category.Valid() {
			evidence[f.Category].firings = append(evidence[f.Category].firings, f)
		}
	}

	result := model.DetectionResult{
		Categories: []model.Category{},
		Scores:     make(map[model.Category]float64),
		Severity:   model.SeverityNone,
	}

	var flagged []float64
	for _, c := range model.AllCategories() {
		e := evidence[c]
		if e.empty() {
			continue
		}

		raw, signals := s.scoreCategory(c, e)
		score := Compress(raw)
		result.Scores[c] = Round(score, 3)
		result.Signals = append(result.Signals, signals...)

		if score > s.cfg.Threshold {
			result.Categories = append(result.Categories, c)
			flagged = append(flagged, score)
		}
	}

	result.HasBias = len(result.Categories) > 0
	if result.HasBias {
		result.OverallScore = Round(mean(flagged), 3)
	}
	result.Severity = ClassifySeverity(flagged)

	return result
}

// scoreCategory returns the raw weight of one category and its explanatory signals
func (s *Scorer) scoreCategory(c model.Category, e categoryEvidence) (float64, []model.Signal) {
	groupWeight := math.Min(float64(e.groups)*s.cfg.GroupWeight, s.cfg.GroupCap)
	traitWeight := float64(e.traits) * s.cfg.TermWeight

	// Count at most MaxFiringsPerRule firings per rule, in firing order
	counted := make(map[string]int)
	total := make(map[string]int)
	ruleWeight := make(map[string]float64)
	var order []string
	patternWeight := 0.0
	for _, f := range e.firings {
		if total[f.Rule] == 0 {
			order = append(order, f.Rule)
		}
		total[f.Rule]++
		if counted[f.Rule] >= s.cfg.MaxFiringsPerRule {
			continue
		}
		counted[f.Rule]++
		ruleWeight[f.Rule] += f.Weight
		patternWeight += f.Weight
	}

	raw := groupWeight + traitWeight + patternWeight
	score := Compress(raw)
	flagged := score > s.cfg.Threshold

	severity := model.SignalInfo
	if flagged {
		severity = model.SignalWarning
		if score >= 0.5 {
			severity = model.SignalCritical
		}
	}

	signals := []model.Signal{{
		Type:     model.SignalCategoryScore,
		Category: c,
		Severity: severity,
		Description: fmt.Sprintf("%s: %d group, %d trait terms, %d pattern firings → %.3f",
			c, e.groups, e.traits, len(e.firings), score),
		Data: map[string]interface{}{
			"group_terms":    e.groups,
			"trait_terms":    e.traits,
			"firings":        len(e.firings),
			"group_weight":   Round(groupWeight, 3),
			"trait_weight":   Round(traitWeight, 3),
			"pattern_weight": Round(patternWeight, 3),
			"raw":            Round(raw, 3),
			"score":          Round(score, 3),
			"threshold":      s.cfg.Threshold,
			"flagged":        flagged,
			"formula": fmt.Sprintf("1 - exp(-(min(groups*%g, %g) + traits*%g + sum(firing weights, max %d per rule)))",
				s.cfg.GroupWeight, s.cfg.GroupCap, s.cfg.TermWeight, s.cfg.MaxFiringsPerRule),
		},
	}}

	for _, rule := range order {
		var evidence []string
		for _, f := range e.firings {
			if f.Rule != rule {
				continue
			}
			evidence = append(evidence, evidenceText(f))
		}
		signalSeverity := model.SignalWarning
		if kindOf(e.firings, rule) == "backhanded" || kindOf(e.firings, rule) == "cluster" {
			signalSeverity = model.SignalCritical
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalPatternFiring,
			Category:    c,
			Severity:    signalSeverity,
			Description: fmt.Sprintf("Rule %s fired %d time(s)", rule, total[rule]),
			Data: map[string]interface{}{
				"rule":     rule,
				"kind":     kindOf(e.firings, rule),
				"fired":    total[rule],
				"counted":  counted[rule],
				"weight":   Round(ruleWeight[rule], 3),
				"evidence": evidence,
			},
		})
	}

	return raw, signals
}

// Compress maps a non-negative raw weight into [0,1) monotonically
func Compress(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return 1 - math.Exp(-raw)
}

// Round rounds x to the given number of decimals
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

func kindOf(firings []model.Firing, rule string) string {
	for _, f := range firings {
		if f.Rule == rule {
			return f.RuleKind
		}
	}
	return ""
}

// evidenceText renders a firing's distinct evidence spans in text order
func evidenceText(f model.Firing) string {
	spans := make(map[model.Span]string)
	for _, m := range f.Evidence {
		spans[m.Span()] = m.Text
	}
	keys := make([]model.Span, 0, len(spans))
	for k := range spans {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Start != keys[j].Start {
			return keys[i].Start < keys[j].Start
		}
		return keys[i].End < keys[j].End
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = spans[k]
	}
	return strings.Join(parts, " … ")
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
