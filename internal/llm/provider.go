// Package llm asks a language model for rewrite suggestions on flagged text.
//
// The advice is rendered separately from the report and never changes a
// score. Only the highlighted passages and their context windows are sent,
// never the whole document.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/slant/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Advise generates rewrite suggestions for the flagged passages of a report
	Advise(ctx context.Context, req AdviseRequest) (*AdviseResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// AdviseRequest contains the input for rewrite advice
type AdviseRequest struct {
	Report model.Report

	// Prompt overrides the default prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// AdviseResponse contains the model output
type AdviseResponse struct {
	Advice     string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "" (disabled)
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for API requests in seconds
	Timeout int

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the disabled configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 800,
	}
}

// maxPassages bounds the number of highlighted passages sent in one prompt
const maxPassages = 15

// BuildPrompt constructs the default advice prompt from a report's highlights
func BuildPrompt(report model.Report) string {
	var b strings.Builder
	b.WriteString(`You are reviewing passages that a lexicon-based scanner flagged as possibly biased.
The scanner is advisory: it matches vocabulary and phrasing, it does not judge intent.

RULES:
1. Suggest a neutral rewrite for each passage below, keeping its meaning.
2. Only discuss the passages listed. Do not invent other problems.
3. If a passage reads as neutral in context, say so briefly instead of rewriting it.
4. Never label the author or speculate about motives.

`)
	fmt.Fprintf(&b, "Severity: %s\n", report.Result.Severity)
	b.WriteString("Flagged categories:")
	if len(report.Result.Categories) == 0 {
		b.WriteString(" none")
	}
	for _, c := range report.Result.Categories {
		fmt.Fprintf(&b, " %s (%.3f)", c, report.Result.Scores[c])
	}
	b.WriteString("\n\nPassages:\n")

	passages := passagesOf(report.Highlights)
	if len(passages) == 0 {
		b.WriteString("(no passages)\n")
	}
	for i, p := range passages {
		if i >= maxPassages {
			fmt.Fprintf(&b, "... and %d more passages\n", len(passages)-maxPassages)
			break
		}
		fmt.Fprintf(&b, "- [%s] %q (term: %q)\n", p.category, p.context, p.term)
	}

	b.WriteString("\nAnswer in Markdown with one bullet per passage.")
	return b.String()
}

type passage struct {
	category model.Category
	context  string
	term     string
}

// passagesOf merges highlights sharing one context window
func passagesOf(highlights []model.Highlight) []passage {
	var out []passage
	seen := make(map[string]bool)
	for _, h := range highlights {
		if h.Kind == model.KindGroup {
			continue
		}
		if seen[h.Context] {
			continue
		}
		seen[h.Context] = true
		out = append(out, passage{category: h.Category, context: h.Context, term: h.Term})
	}
	return out
}
