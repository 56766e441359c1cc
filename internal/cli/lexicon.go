package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/slant/internal/lexicon"
	"github.com/ppiankov/slant/internal/model"
)

var lexiconDump bool

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Inspect and validate lexicon tables",
}

var lexiconValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a lexicon table (default: the configured one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else if cfg, err := loadConfig(); err == nil {
			path = cfg.Lexicon.Path
		}

		var (
			store *lexicon.Store
			err   error
		)
		if path == "" {
			store, err = lexicon.Default()
		} else {
			store, err = lexicon.LoadFile(path)
		}
		if err != nil {
			problems := lexicon.Problems(err)
			fmt.Fprintf(os.Stderr, "✗ %d problem(s):\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "  - %v\n", p)
			}
			return fmt.Errorf("lexicon invalid")
		}

		st := store.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%s): %d group terms, %d trait terms, %d shared terms, %d rules\n",
			store.Source(), store.Version(), st.GroupTerms, st.TraitTerms, st.SharedTerms, st.Rules)
		return nil
	},
}

var lexiconShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded lexicon",
	Long: `Show prints a summary of the loaded lexicon. With --dump it prints
the built-in YAML table, a starting point for custom lexicons.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if lexiconDump {
			_, err := out.Write(lexicon.DefaultTable())
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		detector, err := newDetector(cfg)
		if err != nil {
			return err
		}
		store := detector.Store()
		st := store.Stats()

		fmt.Fprintf(out, "Source:        %s\n", store.Source())
		fmt.Fprintf(out, "Version:       %s\n", store.Version())
		fmt.Fprintf(out, "Categories:    %d\n", st.Categories)
		fmt.Fprintf(out, "Group terms:   %d\n", st.GroupTerms)
		fmt.Fprintf(out, "Trait terms:   %d\n", st.TraitTerms)
		fmt.Fprintf(out, "Shared terms:  %d\n", st.SharedTerms)
		fmt.Fprintf(out, "Rules:         %d\n\n", st.Rules)

		for _, list := range store.Shared() {
			fmt.Fprintf(out, "shared %-20s %d terms\n", list.Name, len(list.Terms))
		}
		fmt.Fprintln(out)
		for _, c := range model.AllCategories() {
			terms := store.TermsOf(c)
			fmt.Fprintf(out, "%s\n", c)
			for _, r := range terms.Rules {
				fmt.Fprintf(out, "  rule %-24s %s\n", r.Name, r.Kind)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexiconCmd)
	lexiconCmd.AddCommand(lexiconValidateCmd)
	lexiconCmd.AddCommand(lexiconShowCmd)

	lexiconShowCmd.Flags().BoolVar(&lexiconDump, "dump", false, "print the built-in YAML table")
}
