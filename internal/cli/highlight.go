package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/slant/internal/model"
)

var (
	highlightCategories []string
	highlightJSON       bool
	highlightMatches    bool
)

var highlightCmd = &cobra.Command{
	Use:   "highlight <text>",
	Short: "Locate the evidence for flagged categories in a text",
	Long: `Highlight prints every term and pattern span that made a category
flagged, with its character offsets and surrounding context.
Categories that are not flagged for the text produce nothing.
With --matches it prints every raw lexicon match instead, flagged or not.

Example:
  slant highlight "The female nurse assisted the male doctor."
  slant highlight "Poor people are lazy." --category socioeconomic --json
  slant highlight "The doctor is in." --matches`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

func init() {
	rootCmd.AddCommand(highlightCmd)

	highlightCmd.Flags().StringSliceVar(&highlightCategories, "category", nil, "categories to highlight (default: all)")
	highlightCmd.Flags().BoolVar(&highlightJSON, "json", false, "print highlights as JSON")
	highlightCmd.Flags().BoolVar(&highlightMatches, "matches", false, "print raw lexicon matches for diagnosis")
}

func runHighlight(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	newLogger(cfg)
	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}

	categories := model.AllCategories()
	if len(highlightCategories) > 0 {
		known, unknown := model.ParseCategories(highlightCategories)
		if len(unknown) > 0 {
			return fmt.Errorf("unknown categories: %s", strings.Join(unknown, ", "))
		}
		categories = known
	}

	out := cmd.OutOrStdout()
	if highlightMatches {
		return printMatches(out, detector.Matches(args[0]), categories)
	}

	highlights := detector.Highlight(args[0], categories)

	if highlightJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(highlights)
	}

	if len(highlights) == 0 {
		fmt.Fprintln(out, "✓ Nothing to highlight")
		return nil
	}
	for _, h := range highlights {
		fmt.Fprintf(out, "%-14s %-8s %4d-%-4d %q\n", h.Category, h.Kind, h.Start, h.End, h.Term)
		fmt.Fprintf(out, "               …%s…\n", h.Context)
	}
	return nil
}

// printMatches lists lexicon matches in the given categories. Shared
// matches belong to no category and are always listed.
func printMatches(out io.Writer, matches []model.Match, categories []model.Category) error {
	keep := make(map[model.Category]bool, len(categories))
	for _, c := range categories {
		keep[c] = true
	}

	n := 0
	for _, m := range matches {
		if !m.Shared && !keep[m.Category] {
			continue
		}
		owner := m.Category.String()
		if m.Shared {
			owner = "shared"
		}
		fmt.Fprintf(out, "%-14s %-8s %-24s %4d-%-4d %q\n", owner, m.Kind, m.List, m.Start, m.End, m.Text)
		n++
	}
	if n == 0 {
		fmt.Fprintln(out, "✓ No lexicon matches")
	}
	return nil
}
