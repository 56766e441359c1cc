package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/score"
)

// Renderer writes reports as JSON, Markdown and console summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes report as indented JSON
func (r *Renderer) RenderJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}

// WriteJSONFile writes report as JSON to path
func (r *Renderer) WriteJSONFile(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.RenderJSON(w, report) })
}

// WriteMarkdownFile writes report as Markdown to path
func (r *Renderer) WriteMarkdownFile(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.RenderMarkdown(w, report) })
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return render(f)
}

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(w io.Writer, report *model.Report) error {
	md := markdown.NewMarkdown(w)

	md.H1("Slant Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Subject", escapeCell(report.Subject)},
			{"Source", sourceText(report.Source)},
			{"Analyzed", report.AnalyzedAt.Format("2006-01-02 15:04:05 MST")},
			{"Lexicon", "`" + report.LexiconVersion + "`"},
			{"Severity", severityBadge(report.Result.Severity)},
			{"Overall score", formatScore(report.Result.OverallScore)},
		},
	})
	md.PlainText("")

	writeVerdict(md, report.Result)

	md.H2("Category Scores")
	md.PlainText("")
	rows := make([][]string, 0, len(model.AllCategories()))
	for _, c := range model.AllCategories() {
		flag := ""
		if report.Result.Flagged(c) {
			flag = "⚑ flagged"
		}
		rows = append(rows, []string{c.String(), formatScore(report.Result.Scores[c]), flag})
	}
	md.Table(markdown.TableSet{Header: []string{"Category", "Score", ""}, Rows: rows})
	md.PlainText("")

	md.H2("Highlights")
	md.PlainText("")
	if len(report.Highlights) == 0 {
		md.PlainText("Nothing to highlight.")
	} else {
		rows := make([][]string, 0, len(report.Highlights))
		for _, h := range report.Highlights {
			rows = append(rows, []string{
				h.Category.String(),
				"**" + escapeCell(h.Term) + "**",
				string(h.Kind),
				fmt.Sprintf("%d-%d", h.Start, h.End),
				escapeCell(h.Context),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Category", "Term", "Kind", "Position", "Context"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if len(report.Result.Signals) > 0 {
		md.H2("Signals")
		md.PlainText("")
		for _, s := range report.Result.Signals {
			md.Details(fmt.Sprintf("%s: %s", s.Category, s.Type), s.Description)
		}
		md.PlainText("")
	}

	md.H2("Statistics")
	md.PlainText("")
	st := report.Stats
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Words", strconv.Itoa(st.WordCount)},
			{"Characters", strconv.Itoa(st.CharCount)},
			{"Sentences", strconv.Itoa(st.SentenceCount)},
			{"Avg word length", strconv.FormatFloat(st.AvgWordLength, 'f', 2, 64)},
			{"Avg sentence length", strconv.FormatFloat(st.AvgSentenceLength, 'f', 2, 64)},
			{"Bias density (per 100 words)", strconv.FormatFloat(st.BiasDensity, 'f', 2, 64)},
		},
	})
	md.PlainText("")

	md.H2("Recommendations")
	md.PlainText("")
	md.BulletList(report.Recommendations...)
	md.PlainText("")

	if report.LLM != nil && report.LLM.Enabled {
		md.Note("LLM rewrite advice was generated separately and did not affect any score.")
		md.PlainText("")
	}

	if r.includeFooter {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*Generated by [slant](https://github.com/ppiankov/slant). Advisory only: flags language for review, never rules on intent.*")
	}

	return md.Build()
}

func writeVerdict(md *markdown.Markdown, result model.DetectionResult) {
	names := make([]string, 0, len(result.Categories))
	for _, c := range result.Categories {
		names = append(names, c.String())
	}
	list := strings.Join(names, ", ")

	switch result.Severity {
	case model.SeveritySevere:
		md.Cautionf("Severe bias signals in: %s. Consider significant revision.", list)
	case model.SeverityModerate:
		md.Warningf("Moderate bias signals in: %s.", list)
	case model.SeverityMild:
		md.Importantf("Mild bias signals in: %s.", list)
	default:
		md.Tip("No significant bias detected.")
	}
	md.PlainText("")
}

// RenderSummary prints a short console summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	res := report.Result
	if !res.HasBias {
		fmt.Fprintf(w, "✓ %s: no significant bias detected\n", report.Subject)
		return
	}

	fmt.Fprintf(w, "⚑ %s: %s bias (overall %s)\n", report.Subject, res.Severity, formatScore(res.OverallScore))
	for _, c := range res.Categories {
		fmt.Fprintf(w, "  %-14s %s\n", c.String(), formatScore(res.Scores[c]))
	}
	for _, h := range report.Highlights {
		fmt.Fprintf(w, "    [%s] %q at %d-%d: …%s…\n", h.Category, h.Term, h.Start, h.End, h.Context)
	}
}

// BatchOutcome is one entry of a batch summary
type BatchOutcome struct {
	Label  string
	Report *model.Report // nil on failure
	Err    error
}

// RenderBatchSummary writes a Markdown overview of a batch run
func (r *Renderer) RenderBatchSummary(w io.Writer, outcomes []BatchOutcome) error {
	md := markdown.NewMarkdown(w)
	md.H1("Slant Batch Summary")
	md.PlainText("")

	var results []model.DetectionResult
	failed := 0
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			rows = append(rows, []string{escapeCell(o.Label), "❌ error", "", escapeCell(o.Err.Error())})
			continue
		}
		res := o.Report.Result
		results = append(results, res)
		names := make([]string, 0, len(res.Categories))
		for _, c := range res.Categories {
			names = append(names, c.String())
		}
		rows = append(rows, []string{
			escapeCell(o.Label),
			severityBadge(res.Severity),
			formatScore(res.OverallScore),
			strings.Join(names, ", "),
		})
	}
	sum := score.Aggregate(results)

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Documents", strconv.Itoa(len(outcomes))},
			{"Scanned", strconv.Itoa(sum.Documents)},
			{"Failed", strconv.Itoa(failed)},
			{"Flagged", strconv.Itoa(sum.Flagged)},
			{"Worst severity", severityBadge(sum.MaxSeverity)},
			{"Mean overall score", formatScore(sum.Overall)},
		},
	})
	md.PlainText("")

	if len(sum.Distribution) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Flagged Categories"),
			piechart.WithShowData(true),
		)
		for _, c := range model.AllCategories() {
			if n := sum.Distribution[c]; n > 0 {
				chart.LabelAndIntValue(c.String(), uint64(n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	md.H2("Severity")
	md.PlainText("")
	sevRows := make([][]string, 0, 4)
	for _, s := range []model.Severity{model.SeveritySevere, model.SeverityModerate, model.SeverityMild, model.SeverityNone} {
		sevRows = append(sevRows, []string{severityBadge(s), strconv.Itoa(sum.Severities[s])})
	}
	md.Table(markdown.TableSet{Header: []string{"Severity", "Documents"}, Rows: sevRows})
	md.PlainText("")

	md.H2("Documents")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Document", "Severity", "Overall", "Categories"},
		Rows:   rows,
	})
	md.PlainText("")

	if r.includeFooter {
		md.HorizontalRule()
		md.PlainTextf("*Generated by [slant](https://github.com/ppiankov/slant)*")
	}
	return md.Build()
}

func severityBadge(s model.Severity) string {
	switch s {
	case model.SeveritySevere:
		return "🔴 severe"
	case model.SeverityModerate:
		return "🟠 moderate"
	case model.SeverityMild:
		return "🟡 mild"
	default:
		return "⚪ none"
	}
}

func sourceText(s model.Source) string {
	if s.Location == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s: %s", s.Kind, s.Location)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// escapeCell keeps table cells on one line and escapes column separators
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
