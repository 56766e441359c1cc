// Package detect is the entry point of the bias detection engine.
//
// A Detector ties a lexicon store to the matcher, the pattern engine, the
// scorer and the highlighter. It holds no mutable state after construction,
// so one Detector can serve any number of goroutines.
package detect

import (
	"fmt"

	"github.com/ppiankov/slant/internal/extract"
	"github.com/ppiankov/slant/internal/highlight"
	"github.com/ppiankov/slant/internal/lexicon"
	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/pattern"
	"github.com/ppiankov/slant/internal/score"
)

// Detector detects biased language in text
type Detector struct {
	store       *lexicon.Store
	cfg         model.DetectionConfig
	matcher     *extract.Matcher
	engine      *pattern.Engine
	scorer      *score.Scorer
	highlighter *highlight.Highlighter
}

// Analysis is everything one pass over a text produces
type Analysis struct {
	Result     model.DetectionResult
	Highlights []model.Highlight // Evidence for every flagged category
	Matches    []model.Match
	Firings    []model.Firing
	Words      int
	Sentences  int
}

// New creates a detector over store using cfg
func New(store *lexicon.Store, cfg model.DetectionConfig) (*Detector, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detection config: %w", err)
	}
	return &Detector{
		store:       store,
		cfg:         cfg,
		matcher:     extract.NewMatcher(store),
		engine:      pattern.NewEngine(store, cfg),
		scorer:      score.NewScorer(cfg),
		highlighter: highlight.NewHighlighter(cfg.ContextWidth),
	}, nil
}

// NewDefault creates a detector over the built-in lexicon with default weights
func NewDefault() (*Detector, error) {
	store, err := lexicon.Default()
	if err != nil {
		return nil, err
	}
	return New(store, model.DefaultDetectionConfig())
}

// Store returns the lexicon the detector was built with
func (d *Detector) Store() *lexicon.Store {
	return d.store
}

// Config returns the detection knobs in use
func (d *Detector) Config() model.DetectionConfig {
	return d.cfg
}

// Detect scores text. It never fails: empty or degraded text yields a
// result with no bias.
func (d *Detector) Detect(text string) model.DetectionResult {
	scan := d.matcher.Scan(text)
	return d.scorer.Calculate(scan.Matches, d.engine.Evaluate(scan))
}

// DetectValue is Detect for dynamically typed input such as decoded JSON.
// Anything other than a string is rejected with an *InvalidInputError.
func (d *Detector) DetectValue(v any) (model.DetectionResult, error) {
	text, err := AsText(v)
	if err != nil {
		return model.DetectionResult{}, err
	}
	return d.Detect(text), nil
}

// AsText returns v as detector input, or an *InvalidInputError when v is not a string
func AsText(v any) (string, error) {
	text, ok := v.(string)
	if !ok {
		return "", &InvalidInputError{Got: typeName(v)}
	}
	return text, nil
}

// Highlight locates the evidence for categories in text. Categories that
// are not flagged for this text produce no highlights.
func (d *Detector) Highlight(text string, categories []model.Category) []model.Highlight {
	scan := d.matcher.Scan(text)
	firings := d.engine.Evaluate(scan)
	result := d.scorer.Calculate(scan.Matches, firings)

	var keep []model.Category
	for _, c := range categories {
		if c.Valid() && result.Flagged(c) {
			keep = append(keep, c)
		}
	}
	return d.highlighter.Highlight(text, scan.Matches, firings, keep)
}

// Matches returns the raw lexicon matches in text
func (d *Detector) Matches(text string) []model.Match {
	return d.matcher.Scan(text).Matches
}

// Analyze runs the whole engine once and highlights every flagged category
func (d *Detector) Analyze(text string) Analysis {
	scan := d.matcher.Scan(text)
	firings := d.engine.Evaluate(scan)
	result := d.scorer.Calculate(scan.Matches, firings)

	return Analysis{
		Result:     result,
		Highlights: d.highlighter.Highlight(text, scan.Matches, firings, result.Categories),
		Matches:    scan.Matches,
		Firings:    firings,
		Words:      scan.WordCount(),
		Sentences:  scan.Sentences(),
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, uint, uint64, uint32:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
