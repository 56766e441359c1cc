// Package pipeline turns an input (text, file or URL) into a rendered slant report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/slant/internal/cache"
	"github.com/ppiankov/slant/internal/detect"
	"github.com/ppiankov/slant/internal/extract"
	"github.com/ppiankov/slant/internal/llm"
	"github.com/ppiankov/slant/internal/model"
)

// ErrUnsupportedContent is returned for fetched documents that are not text
var ErrUnsupportedContent = errors.New("unsupported content type")

// Pipeline orchestrates loading, detection, reporting and caching
type Pipeline struct {
	detector  *detect.Detector
	fetcher   *Fetcher
	extractor *extract.TextExtractor
	cache     cache.Cache  // nil when caching is disabled
	advisor   *llm.Advisor // nil or disabled when no LLM is configured
	renderer  *Renderer
	config    *model.Config
	logger    *slog.Logger
	out       io.Writer // Console summaries
	now       func() time.Time
}

// NewPipeline wires a pipeline around detector using cfg
func NewPipeline(cfg *model.Config, detector *detect.Detector, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	var advisor *llm.Advisor
	if cfg.LLM.Provider != "" {
		a, err := llm.NewAdvisor(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			logger.Warn("LLM advisor disabled", "error", err)
		} else {
			advisor = a
		}
	}

	return &Pipeline{
		detector:  detector,
		fetcher:   NewFetcher(cfg.HTTP),
		extractor: extract.NewTextExtractor(),
		cache:     cache.FromConfig(cfg.Cache),
		advisor:   advisor,
		renderer:  NewRenderer(cfg.Output.IncludeFooter),
		config:    cfg,
		logger:    logger,
		out:       os.Stdout,
		now:       time.Now,
	}
}

// DisableCache turns off report caching for this pipeline
func (p *Pipeline) DisableCache() {
	p.cache = nil
}

// Renderer returns the pipeline's report renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Scan loads an input and analyses it
func (p *Pipeline) Scan(ctx context.Context, in Input) (*model.Report, error) {
	text, source, err := p.Load(ctx, in)
	if err != nil {
		return nil, err
	}
	return p.ScanText(ctx, text, source), nil
}

// Load resolves an input to plain text and its source description
func (p *Pipeline) Load(ctx context.Context, in Input) (string, model.Source, error) {
	switch in.Kind {
	case model.SourceText, "":
		return in.Text, model.Source{Kind: model.SourceText}, nil

	case model.SourceFile:
		data, err := os.ReadFile(in.Location)
		if err != nil {
			return "", model.Source{}, fmt.Errorf("read file: %w", err)
		}
		source := model.Source{Kind: model.SourceFile, Location: in.Location}
		ext := strings.ToLower(filepath.Ext(in.Location))
		if ext == ".html" || ext == ".htm" || extract.LooksLikeHTML(data) {
			doc, err := p.extractor.Extract(data, "")
			if err != nil {
				return "", model.Source{}, fmt.Errorf("extract text: %w", err)
			}
			source.Title = doc.Title
			return doc.Text, source, nil
		}
		return string(data), source, nil

	case model.SourceURL:
		result, err := p.fetcher.FetchWithRetry(ctx, in.Location)
		if err != nil {
			return "", model.Source{}, fmt.Errorf("fetch: %w", err)
		}
		if result.Truncated {
			p.logger.Warn("document truncated", "url", result.FinalURL, "max_bytes", p.config.HTTP.MaxBodyBytes)
		}
		source := model.Source{Kind: model.SourceURL, Location: result.FinalURL, Title: result.Subject}

		if result.IsHTML() || extract.LooksLikeHTML(result.Body) {
			doc, err := p.extractor.Extract(result.Body, result.FinalURL)
			if err != nil {
				return "", model.Source{}, fmt.Errorf("extract text: %w", err)
			}
			if doc.Title != "" {
				source.Title = doc.Title
			}
			p.logger.Debug("extracted page text", "url", result.FinalURL, "method", doc.Method)
			return doc.Text, source, nil
		}
		if ct := strings.ToLower(result.ContentType); ct != "" && !strings.HasPrefix(ct, "text/") {
			return "", model.Source{}, fmt.Errorf("%w: %s", ErrUnsupportedContent, result.ContentType)
		}
		return string(result.Body), source, nil

	default:
		return "", model.Source{}, fmt.Errorf("unknown input kind %q", in.Kind)
	}
}

// ScanText analyses text and builds its report, consulting the cache first.
// LLM advice is attached after scoring and never changes it.
func (p *Pipeline) ScanText(ctx context.Context, text string, source model.Source) *model.Report {
	key := cache.ReportKey(p.detector.Store().Version(), p.detector.Config(), text)

	var report *model.Report
	if p.cache != nil {
		var cached model.Report
		if cache.GetJSON(p.cache, key, &cached) {
			p.logger.Debug("report cache hit", "key", key)
			report = p.restamp(&cached, text, source)
		}
	}

	if report == nil {
		report = p.BuildReport(text, source)
		if p.cache != nil {
			if err := cache.SetJSON(p.cache, key, report, 0); err != nil {
				p.logger.Warn("report cache write failed", "error", err)
			}
		}
	}

	if p.advisor.IsEnabled() {
		summary, err := p.advisor.GenerateAdvice(ctx, *report)
		if err != nil {
			p.logger.Warn("LLM advice failed", "error", err)
		} else if summary != nil {
			report.LLM = summary
		}
	}

	return report
}

// restamp turns a cached report into a new scan of source: only the
// text-derived analysis is reused
func (p *Pipeline) restamp(cached *model.Report, text string, source model.Source) *model.Report {
	cached.ID = uuid.NewString()
	cached.Subject = subjectOf(text, source)
	cached.Source = source
	cached.AnalyzedAt = p.now().UTC()
	cached.LLM = nil
	cached.Text = ""
	if p.config.Output.IncludeText {
		cached.Text = text
	}
	return cached
}

func subjectOf(text string, source model.Source) string {
	subject := source.Title
	if subject == "" && source.Kind == model.SourceFile {
		subject = filepath.Base(source.Location)
	}
	if subject == "" {
		subject = model.SubjectFromText(text, 60)
	}
	return subject
}

// BuildReport runs the detector over text and assembles a report
func (p *Pipeline) BuildReport(text string, source model.Source) *model.Report {
	analysis := p.detector.Analyze(text)

	report := &model.Report{
		ID:              uuid.NewString(),
		Subject:         subjectOf(text, source),
		Source:          source,
		AnalyzedAt:      p.now().UTC(),
		LexiconVersion:  p.detector.Store().Version(),
		Stats:           ComputeStats(text, len(analysis.Highlights)),
		Result:          analysis.Result,
		Highlights:      analysis.Highlights,
		Recommendations: Recommendations(analysis.Result),
		Principles:      model.DefaultPrinciples(),
	}
	if p.config.Output.IncludeText {
		report.Text = text
	}

	p.logger.Debug("scanned document",
		"subject", report.Subject,
		"text", text,
		"severity", report.Result.Severity,
		"categories", len(report.Result.Categories))
	return report
}

// RenderReport writes the JSON and Markdown outputs that were requested and
// prints the console summary
func (p *Pipeline) RenderReport(report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.WriteJSONFile(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.WriteMarkdownFile(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}

		if report.LLM != nil && report.LLM.Enabled {
			llmPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
			if err := os.WriteFile(llmPath, []byte(llm.RenderSeparateMarkdown(report.LLM)), 0o644); err != nil {
				p.logger.Warn("write LLM advice failed", "path", llmPath, "error", err)
			} else if verbose {
				fmt.Fprintf(os.Stderr, "✓ Wrote LLM advice: %s\n", llmPath)
			}
		}
	}

	p.renderer.RenderSummary(p.out, report)
	return nil
}
