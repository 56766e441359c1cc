package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/ppiankov/slant/internal/model"
)

// Advisor wraps an optional provider. A nil provider disables advice.
type Advisor struct {
	provider Provider
	config   Config
}

// NewAdvisor creates an advisor for config
func NewAdvisor(config Config) (*Advisor, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return &Advisor{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (a *Advisor) IsEnabled() bool {
	return a != nil && a.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (a *Advisor) ProviderName() string {
	if !a.IsEnabled() {
		return ""
	}
	return a.provider.Name()
}

// GenerateAdvice asks the provider for rewrite suggestions on a report.
// Provider failures degrade to a summary carrying warnings; the returned
// error is reserved for programming mistakes and is currently always nil.
// Reports with nothing flagged get no advice.
func (a *Advisor) GenerateAdvice(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if !a.IsEnabled() || !report.Result.HasBias {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Provider: a.provider.Name(),
		Model:    a.config.Model,
	}

	if !a.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("LLM provider %s is not available", a.provider.Name()))
		return summary, nil
	}
	summary.Enabled = true

	resp, err := a.provider.Advise(ctx, AdviseRequest{
		Report:    report,
		Model:     a.config.Model,
		MaxTokens: a.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Advice generation failed: %v", err))
		return summary, nil
	}

	summary.AdviceMD = resp.Advice
	summary.Model = resp.Model
	summary.TokensUsed = resp.TokensUsed
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	return summary, nil
}

// RenderSeparateMarkdown renders advice as a standalone Markdown document
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	md := markdown.NewMarkdown(&b)
	md.H1("LLM Rewrite Advice")
	md.PlainText("")
	md.Cautionf("GENERATED CONTENT from %s. Suggestions may be wrong. "+
		"Bias scores are determined independently by the lexicon engine and are not affected by this advice.", summary.Provider)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Provider", summary.Provider},
			{"Model", summary.Model},
		},
	})
	md.PlainText("")

	md.H2("Suggestions")
	md.PlainText("")
	if summary.AdviceMD == "" {
		md.PlainText("*No advice generated.*")
	} else {
		md.PlainText(summary.AdviceMD)
	}
	md.PlainText("")

	if len(summary.Warnings) > 0 {
		md.H2("Notes")
		md.PlainText("")
		md.BulletList(summary.Warnings...)
	}

	return md.String()
}
