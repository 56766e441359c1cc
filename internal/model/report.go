package model

import "time"

// Report represents the complete slant analysis of one document
type Report struct {
	ID              string          `json:"id"`              // Unique report identifier
	Subject         string          `json:"subject"`         // Title, file name, or text excerpt
	Source          Source          `json:"source"`          // Where the text came from
	AnalyzedAt      time.Time       `json:"analyzed_at"`     // When the analysis ran
	LexiconVersion  string          `json:"lexicon_version"` // Hash of the lexicon table used
	Text            string          `json:"text,omitempty"`  // Analysed text (only when output.include_text)
	Stats           TextStats       `json:"statistics"`      // Basic text statistics
	Result          DetectionResult `json:"bias_analysis"`   // Engine output
	Highlights      []Highlight     `json:"highlights"`      // Located evidence for flagged categories
	Recommendations []string        `json:"recommendations"`
	Principles      Principles      `json:"principles"` // Core principles applied

	LLM *LLMSummary `json:"llm,omitempty"` // Optional LLM advice (separate, never affects score)
}

// Source describes the origin of an analysed text
type Source struct {
	Kind     SourceKind `json:"kind"`
	Location string     `json:"location,omitempty"` // URL or file path
	Title    string     `json:"title,omitempty"`    // Page title for URL inputs
}

// SourceKind classifies report inputs
type SourceKind string

const (
	SourceText SourceKind = "text"
	SourceFile SourceKind = "file"
	SourceURL  SourceKind = "url"
)

// TextStats summarises the analysed text
type TextStats struct {
	WordCount         int            `json:"word_count"`
	CharCount         int            `json:"char_count"`
	SentenceCount     int            `json:"sentence_count"`
	AvgWordLength     float64        `json:"avg_word_length"`
	AvgSentenceLength float64        `json:"avg_sentence_length"`
	BiasDensity       float64        `json:"bias_density"` // Evidence spans per 100 words
	TopWords          map[string]int `json:"top_words,omitempty"`
}

// Principles documents which core principles were applied
type Principles struct {
	Advisory    bool `json:"advisory"`    // Flags language for review, never rules on intent
	Transparent bool `json:"transparent"` // All scoring explainable
	Symmetric   bool `json:"symmetric"`   // Same rules for every group
}

// DefaultPrinciples returns the standard slant principles
func DefaultPrinciples() Principles {
	return Principles{
		Advisory:    true,
		Transparent: true,
		Symmetric:   true,
	}
}

// LLMSummary contains optional LLM-generated rewrite advice
// It never affects scoring and is rendered separately
type LLMSummary struct {
	Enabled    bool     `json:"enabled"`
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
	AdviceMD   string   `json:"advice_md,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// SubjectFromText builds a short subject line from the first words of a text
func SubjectFromText(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 60
	}
	var out []rune
	space := false
	for _, r := range text {
		if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
			if len(out) > 0 {
				space = true
			}
			continue
		}
		if space {
			out = append(out, ' ')
			space = false
		}
		out = append(out, r)
		if len(out) >= maxRunes {
			return string(out) + "…"
		}
	}
	if len(out) == 0 {
		return "(empty)"
	}
	return string(out)
}
