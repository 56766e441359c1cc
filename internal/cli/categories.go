package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/slant/internal/model"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List bias categories and their lexicon coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		detector, err := newDetector(cfg)
		if err != nil {
			return err
		}
		lex := detector.Store()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Lexicon: %s (%s)\n\n", lex.Source(), lex.Version())
		for _, c := range model.AllCategories() {
			terms := lex.TermsOf(c)
			fmt.Fprintf(out, "%-14s %s\n", c, c.Info().Description)
			fmt.Fprintf(out, "               %d group terms, %d trait terms, %d rules\n",
				terms.GroupTermCount(), terms.TraitTermCount(), len(terms.Rules))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
