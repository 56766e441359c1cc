package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/slant/internal/pipeline"
	"github.com/ppiankov/slant/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchJSONL   bool
	batchHTTP    httpFlags
	batchLLM     llmFlags
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan many documents from a file in parallel",
	Long: `Batch scans every input listed in a file ("-" reads standard input):
- One input per line: http(s) URLs are fetched, @path reads a file,
  anything else is scanned as literal text
- Blank lines and # comments are skipped, duplicates dropped
- With --jsonl each line is a record {"id": ..., "text": ...}
  (or "url"/"file"); a record whose text is not a string is reported
  as an input error without stopping the batch
- URL inputs are rate limited per host
- Writes a JSON and Markdown report per input plus summary.md

Example:
  slant batch inputs.txt
  slant batch records.jsonl --jsonl --output-dir ./reports
  slant batch urls.txt --concurrency 8 --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./slant-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchJSONL, "jsonl", false, "read JSON records instead of plain lines")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&dbDir, "db", "", "record scans in the history database in this directory")

	batchHTTP.register(batchCmd)
	batchLLM.register(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batchHTTP.apply(cmd, cfg)
	if err := batchLLM.apply(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Slant Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  Lexicon:      %s (%s)\n", detector.Store().Source(), detector.Store().Version())
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	history, err := openHistory(cfg, dbDir)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if history != nil {
		defer func() { _ = history.Close() }()
	}

	p := pipeline.NewPipeline(cfg, detector, logger)
	renderer := p.Renderer()
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	used := make(map[string]int)
	processor.OnResult(func(res *worker.ScanResult) {
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Input.Label(), res.Error)
			return
		}

		slug := uniqueSlug(used, sanitizeFilename(res.Input.Label()))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := renderer.WriteJSONFile(res.Report, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", res.Input.Label(), err)
			return
		}
		if err := renderer.WriteMarkdownFile(res.Report, mdPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", res.Input.Label(), err)
			return
		}
		if history != nil {
			if err := history.Record(ctx, res.Report); err != nil {
				logger.Warn("history record failed", "id", res.Report.ID, "error", err)
			}
		}

		fmt.Fprintf(os.Stderr, "✓ %s (%s, overall %.3f)\n", res.Input.Label(), res.Report.Result.Severity, res.Report.Result.OverallScore)
	})

	fmt.Fprintf(os.Stderr, "⚙️  Processing inputs with %d workers...\n\n", cfg.Concurrency.Workers)

	var results []*worker.ScanResult
	if file == "-" {
		results, err = processor.ProcessReader(ctx, cmd.InOrStdin(), batchJSONL)
	} else {
		results, err = processor.ProcessFile(ctx, file, batchJSONL)
	}
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	outcomes := make([]pipeline.BatchOutcome, len(results))
	failureCount := 0
	for i, res := range results {
		outcomes[i] = res.Outcome()
		if res.Error != nil {
			failureCount++
		}
	}

	summaryPath := filepath.Join(outputDir, "summary.md")
	f, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := renderer.RenderBatchSummary(f, outcomes); err != nil {
		_ = f.Close()
		return fmt.Errorf("render summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close summary: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(results)-failureCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Summary:   %s\n", summaryPath)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename turns a label into a safe file name stem
func sanitizeFilename(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 80 {
			break
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "report"
	}
	return out
}

func uniqueSlug(used map[string]int, slug string) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
