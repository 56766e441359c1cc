package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/slant/internal/pipeline"
)

var (
	scanFile        string
	scanURL         string
	scanStdin       bool
	outJSON         string
	outMD           string
	scanTimeout     time.Duration
	noCache         bool
	noFooter        bool
	includeText     bool
	dbDir           string
	scanHTTP        httpFlags
	scanLLM         llmFlags
	errNoScanSource = errors.New("give text, --file, --url or --stdin")
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Scan one text, file or URL for biased language",
	Long: `Scan analyses a single document:
- Match group and trait terms from the lexicon
- Apply per-category pattern rules (co-occurrence, backhanded compliments, loaded rhetoric)
- Score each category and classify overall severity
- Highlight the evidence with surrounding context

Example:
  slant scan "The female nurse assisted the male doctor."
  slant scan --file essay.txt --md report.md
  slant scan --url https://example.com/article --json report.json
  echo "Millennials are entitled." | slant scan --stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanFile, "file", "", "read the document from a file")
	scanCmd.Flags().StringVar(&scanURL, "url", "", "fetch the document from a URL")
	scanCmd.Flags().BoolVar(&scanStdin, "stdin", false, "read the document from standard input")

	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "overall scan timeout")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	scanCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	scanCmd.Flags().BoolVar(&includeText, "include-text", false, "embed the analysed text in JSON reports")
	scanCmd.Flags().StringVar(&dbDir, "db", "", "record the scan in the history database in this directory")

	scanHTTP.register(scanCmd)
	scanLLM.register(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	input, err := scanInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scanHTTP.apply(cmd, cfg)
	if err := scanLLM.apply(cmd, cfg); err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if includeText {
		cfg.Output.IncludeText = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", input.Label())
		fmt.Fprintf(os.Stderr, "Lexicon: %s (%s)\n", detector.Store().Source(), detector.Store().Version())
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg, detector, logger)
	report, err := p.Scan(ctx, input)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Scanned %d words in %d sentences\n", report.Stats.WordCount, report.Stats.SentenceCount)
		fmt.Fprintf(os.Stderr, "✓ Highlighted %d spans\n", len(report.Highlights))
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM advice using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	history, err := openHistory(cfg, dbDir)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if history != nil {
		defer func() { _ = history.Close() }()
		if err := history.Record(ctx, report); err != nil {
			logger.Warn("history record failed", "error", err)
		} else if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Recorded in %s\n", history.Path())
		}
	}

	if err := p.RenderReport(report, outJSON, outMD, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

// scanInput resolves exactly one document source from args and flags
func scanInput(stdin io.Reader, args []string) (pipeline.Input, error) {
	sources := 0
	for _, set := range []bool{len(args) == 1, scanFile != "", scanURL != "", scanStdin} {
		if set {
			sources++
		}
	}
	if sources == 0 {
		return pipeline.Input{}, errNoScanSource
	}
	if sources > 1 {
		return pipeline.Input{}, fmt.Errorf("only one source allowed: %w", errNoScanSource)
	}

	switch {
	case scanFile != "":
		return pipeline.FileInput(scanFile), nil
	case scanURL != "":
		if !strings.HasPrefix(scanURL, "http://") && !strings.HasPrefix(scanURL, "https://") {
			return pipeline.Input{}, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedScheme, scanURL)
		}
		return pipeline.URLInput(scanURL), nil
	case scanStdin:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("read stdin: %w", err)
		}
		return pipeline.TextInput(string(data)), nil
	default:
		return pipeline.TextInput(args[0]), nil
	}
}
