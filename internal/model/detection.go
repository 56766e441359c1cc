package model

// Severity is the coarse ordinal classification of a detection result
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Rank orders severities from none (0) to severe (3)
func (s Severity) Rank() int {
	switch s {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	default:
		return 0
	}
}

// MatchKind tells which kind of lexicon evidence produced a match
type MatchKind string

const (
	KindGroup   MatchKind = "group"   // Membership in a social group
	KindTrait   MatchKind = "trait"   // Evaluative or stereotyping vocabulary
	KindPattern MatchKind = "pattern" // Span that is evidence for a fired pattern rule
)

// Span is a [Start, End) range of character offsets in the source text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Match is one located occurrence of lexicon evidence.
// Offsets are characters (code points) into the original, unmodified text.
type Match struct {
	Category Category  `json:"category"`
	Kind     MatchKind `json:"kind"`
	List     string    `json:"list"`             // Group side or trait list name ("female", "occupation", "shared.negative_traits")
	Shared   bool      `json:"shared,omitempty"` // From a cross-category list; Category is meaningless when set
	Text     string    `json:"text"`             // Surface text as it appears in the source
	Norm     string    `json:"-"`                // Folded lexicon form used for comparisons
	Start    int       `json:"start"`
	End      int       `json:"end"`

	TokenStart int `json:"-"` // First token index
	TokenEnd   int `json:"-"` // One past the last token index
	Sentence   int `json:"-"` // Sentence index of the first token
}

// Span returns the character span of the match
func (m Match) Span() Span {
	return Span{Start: m.Start, End: m.End}
}

// Firing is one application of a pattern rule
type Firing struct {
	Category Category `json:"category"`
	Rule     string   `json:"rule"`
	RuleKind string   `json:"rule_kind"`
	Weight   float64  `json:"weight"`
	Evidence []Match  `json:"evidence"` // Matches (or synthetic phrase spans) that satisfied the rule
}

// DetectionResult is the engine's output for one text
type DetectionResult struct {
	HasBias      bool                 `json:"has_bias"`
	Categories   []Category           `json:"bias_categories"`
	Scores       map[Category]float64 `json:"bias_scores"`
	Severity     Severity             `json:"severity"`
	OverallScore float64              `json:"overall_score"`
	Signals      []Signal             `json:"signals,omitempty"` // Transparent per-category breakdown
}

// Flagged reports whether c is among the flagged categories
func (r DetectionResult) Flagged(c Category) bool {
	for _, fc := range r.Categories {
		if fc == c {
			return true
		}
	}
	return false
}

// Highlight is a located, context-annotated span explaining why a category was flagged
type Highlight struct {
	Term     string    `json:"term"`
	Start    int       `json:"start"`
	End      int       `json:"end"`
	Context  string    `json:"context"`
	Category Category  `json:"category"`
	Kind     MatchKind `json:"kind"`
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Category    Category               `json:"category"`       // Category the signal explains
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCategoryScore SignalType = "category_score" // Weighted evidence for one category
	SignalPatternFiring SignalType = "pattern_firing" // Rule-level evidence summary
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SignalInfo     SignalSeverity = "info"
	SignalWarning  SignalSeverity = "warning"
	SignalCritical SignalSeverity = "critical"
)
