package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/slant/internal/pipeline"
	"github.com/ppiankov/slant/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [report-id]",
	Short: "List recorded scans, or print one stored report",
	Long: `History lists scans recorded with --db or history.enabled, newest
first. Given a report ID it prints that report as Markdown.

Example:
  slant history --limit 10
  slant history 2f6c4a1e-... --db ./slant-history`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := dbDir
		if dir == "" {
			dir = cfg.History.Dir
		}
		history, err := store.Open(dir)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer func() { _ = history.Close() }()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			report, err := history.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return pipeline.NewRenderer(cfg.Output.IncludeFooter).RenderMarkdown(out, report)
		}

		entries, err := history.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(out, "No scans recorded in %s\n", history.Path())
			return nil
		}
		for _, e := range entries {
			names := make([]string, len(e.Categories))
			for i, c := range e.Categories {
				names[i] = c.String()
			}
			fmt.Fprintf(out, "%s  %s  %-8s %.3f  %-30s %s\n",
				e.AnalyzedAt.Local().Format("2006-01-02 15:04"),
				e.ID, e.Severity, e.OverallScore,
				strings.Join(names, ","), e.Subject)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of entries to list (0 lists all)")
	historyCmd.Flags().StringVar(&dbDir, "db", "", "history database directory (default: history.dir)")
}
