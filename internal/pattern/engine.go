// Package pattern evaluates a category's structural rules over the lexicon
// matches of one text.
package pattern

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/slant/internal/extract"
	"github.com/ppiankov/slant/internal/lexicon"
	"github.com/ppiankov/slant/internal/model"
)

// maxPhraseGap is how many tokens may sit between a qualifier phrase and the
// term it qualifies ("for a young woman")
const maxPhraseGap = 1

// Engine evaluates pattern rules
type Engine struct {
	store *lexicon.Store
	cfg   model.DetectionConfig
}

// NewEngine creates a new pattern engine
func NewEngine(store *lexicon.Store, cfg model.DetectionConfig) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// Evaluate returns the firings of every rule of every category,
// grouped by category in declaration order
func (e *Engine) Evaluate(scan extract.Scan) []model.Firing {
	var firings []model.Firing
	for _, c := range e.store.Categories() {
		firings = append(firings, e.EvaluateCategory(c, scan)...)
	}
	return firings
}

// EvaluateCategory returns the deduplicated firings of one category's rules
func (e *Engine) EvaluateCategory(c model.Category, scan extract.Scan) []model.Firing {
	terms := e.store.TermsOf(c)
	if len(terms.Rules) == 0 || len(scan.Matches) == 0 {
		return nil
	}

	v := newView(c, scan)
	if len(v.groups) == 0 {
		return nil
	}

	var firings []model.Firing
	seen := make(map[string]bool)
	for _, rule := range terms.Rules {
		ev := evaluator{view: v, rule: rule, window: e.window(rule)}

		var found [][]model.Match
		switch rule.Kind {
		case lexicon.RuleAttribute:
			found = ev.attribute()
		case lexicon.RuleContrast:
			found = ev.contrast()
		case lexicon.RuleBackhanded:
			found = ev.backhanded()
		case lexicon.RuleCluster:
			found = ev.cluster()
		case lexicon.RuleCapability:
			found = ev.capability()
		}

		for _, evidence := range found {
			sortEvidence(evidence)
			key := firingKey(rule.Name, evidence)
			if seen[key] {
				continue
			}
			seen[key] = true
			firings = append(firings, model.Firing{
				Category: c,
				Rule:     rule.Name,
				RuleKind: string(rule.Kind),
				Weight:   e.weight(rule),
				Evidence: evidence,
			})
		}
	}
	return firings
}

func (e *Engine) window(rule lexicon.Rule) int {
	if rule.Window > 0 {
		return rule.Window
	}
	return e.cfg.Window
}

func (e *Engine) weight(rule lexicon.Rule) float64 {
	if rule.Weight > 0 {
		return rule.Weight
	}
	if rule.Kind.Severe() {
		return e.cfg.SevereWeight
	}
	return e.cfg.PatternWeight
}

// view is the slice of a scan one category's rules can see
type view struct {
	category model.Category
	scan     extract.Scan
	groups   []model.Match
	traits   []model.Match // own trait lists plus shared lists
}

func newView(c model.Category, scan extract.Scan) view {
	v := view{category: c, scan: scan}
	for _, m := range scan.Matches {
		switch {
		case m.Shared:
			v.traits = append(v.traits, m)
		case m.Category != c:
		case m.Kind == model.KindGroup:
			v.groups = append(v.groups, m)
		case m.Kind == model.KindTrait:
			v.traits = append(v.traits, m)
		}
	}
	return v
}

type evaluator struct {
	view
	rule   lexicon.Rule
	window int
}

// attribute: each qualifying trait paired with its nearest group term
func (ev evaluator) attribute() [][]model.Match {
	var out [][]model.Match
	for _, t := range ev.traits {
		if !ev.rule.UsesTraits(t.List) {
			continue
		}
		var phrase *model.Match
		if len(ev.rule.BeforeTrait) > 0 {
			p, ok := ev.phraseBefore(t, ev.rule.BeforeTrait, maxPhraseGap)
			if !ok {
				continue
			}
			phrase = &p
		}
		g, ok := ev.nearestGroup(t)
		if !ok {
			continue
		}
		evidence := []model.Match{g, t}
		if phrase != nil {
			evidence = append(evidence, *phrase)
		}
		out = append(out, evidence)
	}
	return out
}

// contrast: group side A with its trait, a connective, then side B with a different trait
func (ev evaluator) contrast() [][]model.Match {
	var out [][]model.Match
	tokens := ev.scan.Tokens
	for k := range tokens {
		for _, p := range ev.rule.Between {
			if !ev.phraseAt(k, p) {
				continue
			}
			conn := ev.span(k, k+len(p))

			for _, g1 := range ev.groups {
				if !ev.rule.AppliesToGroup(g1.List) || g1.TokenEnd > conn.TokenStart || !near(g1, conn, ev.window) {
					continue
				}
				for _, g2 := range ev.groups {
					if !ev.rule.AppliesToGroup(g2.List) || g2.List == g1.List ||
						g2.TokenStart < conn.TokenEnd || !near(conn, g2, ev.window) {
						continue
					}
					t1, t2, ok := ev.contrastTraits(g1, g2, conn)
					if !ok {
						continue
					}
					out = append(out, []model.Match{g1, t1, conn, g2, t2})
				}
			}
		}
	}
	return out
}

// contrastTraits picks the traits nearest to each side, which must differ
func (ev evaluator) contrastTraits(g1, g2, conn model.Match) (model.Match, model.Match, bool) {
	left := ev.traitsNear(g1, func(t model.Match) bool { return t.TokenEnd <= conn.TokenStart })
	right := ev.traitsNear(g2, func(t model.Match) bool { return t.TokenStart >= conn.TokenEnd })
	for _, t1 := range left {
		for _, t2 := range right {
			if t1.Norm != t2.Norm {
				return t1, t2, true
			}
		}
	}
	return model.Match{}, model.Match{}, false
}

// backhanded: positive trait near a group term, qualified by surprise or exception framing
func (ev evaluator) backhanded() [][]model.Match {
	var out [][]model.Match
	for _, t := range ev.traits {
		if !ev.rule.UsesTraits(t.List) {
			continue
		}
		tp, traitQualified := ev.phraseBefore(t, ev.rule.BeforeTrait, maxPhraseGap)
		for _, g := range ev.groups {
			if !ev.rule.AppliesToGroup(g.List) || overlaps(g, t) || !near(g, t, ev.window) {
				continue
			}
			gp, groupQualified := ev.phraseBefore(g, ev.rule.BeforeGroup, maxPhraseGap)
			if !traitQualified && !groupQualified {
				continue
			}
			evidence := []model.Match{g, t}
			if traitQualified {
				evidence = append(evidence, tp)
			}
			if groupQualified {
				evidence = append(evidence, gp)
			}
			out = append(out, evidence)
		}
	}
	return out
}

// cluster: one group term with at least MinTraits distinct traits around it
func (ev evaluator) cluster() [][]model.Match {
	var out [][]model.Match
	for _, g := range ev.groups {
		if !ev.rule.AppliesToGroup(g.List) {
			continue
		}
		distinct := make(map[string]bool)
		evidence := []model.Match{g}
		for _, t := range ev.traits {
			if !ev.rule.UsesTraits(t.List) || overlaps(g, t) || !near(g, t, ev.window) {
				continue
			}
			if distinct[t.Norm] {
				continue
			}
			distinct[t.Norm] = true
			evidence = append(evidence, t)
		}
		if len(distinct) >= ev.rule.MinTraits {
			out = append(out, evidence)
		}
	}
	return out
}

// capability: "<before> <group> <after> <word>", e.g. "too old to learn"
func (ev evaluator) capability() [][]model.Match {
	var out [][]model.Match
	tokens := ev.scan.Tokens
	for _, g := range ev.groups {
		if !ev.rule.AppliesToGroup(g.List) {
			continue
		}
		before, ok := ev.phraseBefore(g, ev.rule.BeforeGroup, 0)
		if !ok {
			continue
		}
		after, ok := ev.phraseAfter(g, ev.rule.AfterGroup)
		if !ok {
			continue
		}
		next := after.TokenEnd
		if next >= len(tokens) || tokens[next].Sentence != g.Sentence {
			continue
		}
		out = append(out, []model.Match{g, ev.span(before.TokenStart, next+1)})
	}
	return out
}

// nearestGroup returns the closest in-scope group term to m within the window
func (ev evaluator) nearestGroup(m model.Match) (model.Match, bool) {
	best, bestDist := model.Match{}, -1
	for _, g := range ev.groups {
		if !ev.rule.AppliesToGroup(g.List) || overlaps(g, m) || !near(g, m, ev.window) {
			continue
		}
		if d := distance(g, m); bestDist < 0 || d < bestDist {
			best, bestDist = g, d
		}
	}
	return best, bestDist >= 0
}

// traitsNear returns in-scope traits within the window of g, nearest first
func (ev evaluator) traitsNear(g model.Match, keep func(model.Match) bool) []model.Match {
	var out []model.Match
	for _, t := range ev.traits {
		if ev.rule.UsesTraits(t.List) && !overlaps(g, t) && near(g, t, ev.window) && keep(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return distance(g, out[i]) < distance(g, out[j])
	})
	return out
}

// phraseBefore finds one of phrases ending at most gap tokens before m, in m's sentence
func (ev evaluator) phraseBefore(m model.Match, phrases []lexicon.Phrase, gap int) (model.Match, bool) {
	for g := 0; g <= gap; g++ {
		end := m.TokenStart - g
		for _, p := range phrases {
			start := end - len(p)
			if start < 0 || ev.scan.Tokens[start].Sentence != m.Sentence {
				continue
			}
			if ev.phraseAt(start, p) {
				return ev.span(start, end), true
			}
		}
	}
	return model.Match{}, false
}

// phraseAfter finds one of phrases starting right after m, in m's sentence
func (ev evaluator) phraseAfter(m model.Match, phrases []lexicon.Phrase) (model.Match, bool) {
	for _, p := range phrases {
		end := m.TokenEnd + len(p)
		if end > len(ev.scan.Tokens) || ev.scan.Tokens[end-1].Sentence != m.Sentence {
			continue
		}
		if ev.phraseAt(m.TokenEnd, p) {
			return ev.span(m.TokenEnd, end), true
		}
	}
	return model.Match{}, false
}

func (ev evaluator) phraseAt(start int, p lexicon.Phrase) bool {
	tokens := ev.scan.Tokens
	if start < 0 || start+len(p) > len(tokens) {
		return false
	}
	for i, w := range p {
		if tokens[start+i].Norm != w {
			return false
		}
	}
	return true
}

// span builds a pattern-evidence match over tokens [from, to)
func (ev evaluator) span(from, to int) model.Match {
	tokens := ev.scan.Tokens
	norms := make([]string, 0, to-from)
	for _, t := range tokens[from:to] {
		norms = append(norms, t.Norm)
	}
	return model.Match{
		Category:   ev.category,
		Kind:       model.KindPattern,
		List:       ev.rule.Name,
		Text:       ev.scan.Slice(from, to),
		Norm:       strings.Join(norms, " "),
		Start:      tokens[from].Start,
		End:        tokens[to-1].End,
		TokenStart: from,
		TokenEnd:   to,
		Sentence:   tokens[from].Sentence,
	}
}

// distance is the token gap between two spans; adjacent or overlapping spans are 0 apart
func distance(a, b model.Match) int {
	switch {
	case a.TokenEnd <= b.TokenStart:
		return b.TokenStart - a.TokenEnd
	case b.TokenEnd <= a.TokenStart:
		return a.TokenStart - b.TokenEnd
	default:
		return 0
	}
}

func near(a, b model.Match, window int) bool {
	return a.Sentence == b.Sentence && distance(a, b) <= window
}

func overlaps(a, b model.Match) bool {
	return a.TokenStart < b.TokenEnd && b.TokenStart < a.TokenEnd
}

func sortEvidence(evidence []model.Match) {
	sort.SliceStable(evidence, func(i, j int) bool {
		if evidence[i].Start != evidence[j].Start {
			return evidence[i].Start < evidence[j].Start
		}
		return evidence[i].End < evidence[j].End
	})
}

func firingKey(rule string, evidence []model.Match) string {
	var b strings.Builder
	b.WriteString(rule)
	for _, m := range evidence {
		fmt.Fprintf(&b, "|%d:%d", m.Start, m.End)
	}
	return b.String()
}
