package pattern

import (
	"strings"
	"testing"

	"github.com/ppiankov/slant/internal/extract"
	"github.com/ppiankov/slant/internal/lexicon"
	"github.com/ppiankov/slant/internal/model"
)

type fixture struct {
	matcher *extract.Matcher
	engine  *Engine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := lexicon.Default()
	if err != nil {
		t.Fatalf("load lexicon: %v", err)
	}
	return fixture{
		matcher: extract.NewMatcher(store),
		engine:  NewEngine(store, model.DefaultDetectionConfig()),
	}
}

func (f fixture) firings(text string) []model.Firing {
	return f.engine.Evaluate(f.matcher.Scan(text))
}

func rulesFired(firings []model.Firing, c model.Category) map[string]int {
	out := make(map[string]int)
	for _, f := range firings {
		if f.Category == c {
			out[f.Rule]++
		}
	}
	return out
}

func evidenceTexts(f model.Firing) []string {
	var out []string
	for _, m := range f.Evidence {
		out = append(out, m.Text)
	}
	return out
}

func TestEngine_NoFiringsOnNeutralText(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{
		"",
		"The sky is blue and the grass is green.",
		"He went to the store. She bought groceries. They had a good day.",
		"The church, mosque, and temple are all places of worship.",
		"The program serves both wealthy and poor communities.",
	} {
		if got := f.firings(text); len(got) != 0 {
			t.Errorf("%q: expected no firings, got %+v", text, got)
		}
	}
}

func TestEngine_GenderedOccupation(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("The female nurse assisted the male doctor with surgery.")
	rules := rulesFired(firings, model.CategoryGender)
	if rules["gendered_occupation"] != 2 {
		t.Fatalf("expected 2 gendered_occupation firings, got %v", rules)
	}

	for _, fr := range firings {
		if fr.Rule != "gendered_occupation" {
			continue
		}
		if fr.Weight != 0.4 {
			t.Errorf("expected pattern weight 0.4, got %v", fr.Weight)
		}
		texts := strings.Join(evidenceTexts(fr), " ")
		if texts != "female female nurse" && texts != "male male doctor" {
			t.Errorf("unexpected evidence %q", texts)
		}
	}
}

func TestEngine_OccupationWithoutMarkerDoesNotFire(t *testing.T) {
	f := newFixture(t)
	rules := rulesFired(f.firings("The nurse helped the doctor."), model.CategoryGender)
	if len(rules) != 0 {
		t.Errorf("expected no gender firings, got %v", rules)
	}
}

func TestEngine_AttributeWithSharedTraits(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("Poor people are lazy and uneducated.")
	rules := rulesFired(firings, model.CategorySocioeconomic)
	if rules["class_attribute"] != 2 {
		t.Errorf("expected 2 class_attribute firings, got %v", rules)
	}
}

func TestEngine_AttributeRespectsSentenceAndWindow(t *testing.T) {
	f := newFixture(t)
	if rules := rulesFired(f.firings("Poor people live here. They are lazy."), model.CategorySocioeconomic); len(rules) != 0 {
		t.Errorf("expected no firing across sentences, got %v", rules)
	}
	far := "Poor " + strings.Repeat("word ", 13) + "lazy"
	if rules := rulesFired(f.firings(far), model.CategorySocioeconomic); len(rules) != 0 {
		t.Errorf("expected no firing beyond window, got %v", rules)
	}
	near := "Poor " + strings.Repeat("word ", 12) + "lazy"
	if rules := rulesFired(f.firings(near), model.CategorySocioeconomic); rules["class_attribute"] != 1 {
		t.Errorf("expected firing at window edge, got %v", rules)
	}
}

func TestEngine_Contrast(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("girls are stupid whereas men are really smart")
	rules := rulesFired(firings, model.CategoryGender)
	if rules["gender_contrast"] != 1 {
		t.Fatalf("expected one contrast firing, got %v", rules)
	}
	for _, fr := range firings {
		if fr.Rule == "gender_contrast" {
			got := strings.Join(evidenceTexts(fr), ",")
			if got != "girls,stupid,whereas,men,smart" {
				t.Errorf("unexpected contrast evidence %q", got)
			}
		}
	}
}

func TestEngine_ContrastNeedsOpposingSidesAndDifferentTraits(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name, text string
	}{
		{"same side", "women are smart whereas girls are clever"},
		{"same trait", "women are smart whereas men are smart"},
		{"connective in next sentence", "women are smart. Whereas men are stupid"},
		{"no connective", "women are smart and men are stupid"},
	}
	for _, tc := range cases {
		if rules := rulesFired(f.firings(tc.text), model.CategoryGender); rules["gender_contrast"] != 0 {
			t.Errorf("%s: expected no contrast firing, got %v", tc.name, rules)
		}
	}
}

func TestEngine_Backhanded(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("The female nurse from the inner-city was surprisingly competent, unlike most women in business.")
	rules := rulesFired(firings, model.CategoryGender)
	if rules["backhanded_compliment"] != 2 {
		t.Fatalf("expected 2 backhanded firings, got %v", rules)
	}
	for _, fr := range firings {
		if fr.Rule == "backhanded_compliment" && fr.Weight != 0.5 {
			t.Errorf("expected severe weight 0.5, got %v", fr.Weight)
		}
	}
	if rules := rulesFired(firings, model.CategoryRace); len(rules) != 0 {
		t.Errorf("expected no race firings without a race group term, got %v", rules)
	}
}

func TestEngine_BackhandedGroupFraming(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("She is smart for a woman.")
	rules := rulesFired(firings, model.CategoryGender)
	if rules["backhanded_compliment"] != 1 {
		t.Errorf("expected backhanded firing from 'for a' framing, got %v", rules)
	}

	plain := rulesFired(f.firings("She is smart."), model.CategoryGender)
	if plain["backhanded_compliment"] != 0 {
		t.Errorf("expected no backhanded firing without framing, got %v", plain)
	}
}

func TestEngine_Cluster(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("The radical liberal activist extremists are destroying our country.")
	rules := rulesFired(firings, model.CategoryPolitical)
	if rules["loaded_rhetoric"] != 1 {
		t.Fatalf("expected one cluster firing, got %v", rules)
	}
	for _, fr := range firings {
		if fr.Rule == "loaded_rhetoric" {
			if len(fr.Evidence) != 4 {
				t.Errorf("expected group plus 3 traits, got %v", evidenceTexts(fr))
			}
		}
	}

	single := rulesFired(f.firings("Muslim immigrants are likely to be terrorists."), model.CategoryReligion)
	if single["extremist_cluster"] != 0 {
		t.Errorf("expected no cluster with one trait, got %v", single)
	}
	if single["religious_attribute"] != 1 {
		t.Errorf("expected one attribute firing, got %v", single)
	}
}

func TestEngine_ClusterCountsDistinctTraits(t *testing.T) {
	f := newFixture(t)
	rules := rulesFired(f.firings("Muslim terrorists and more terrorists"), model.CategoryReligion)
	if rules["extremist_cluster"] != 0 {
		t.Errorf("repeated trait must not form a cluster, got %v", rules)
	}
}

func TestEngine_Capability(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("She is too old to learn new software.")
	var found bool
	for _, fr := range firings {
		if fr.Rule == "capability_denial" {
			found = true
			if got := strings.Join(evidenceTexts(fr), "|"); got != "too old to learn|old" {
				t.Errorf("unexpected capability evidence %q", got)
			}
			if fr.Evidence[0].Kind != model.KindPattern {
				t.Errorf("expected phrase span to be pattern evidence, got %s", fr.Evidence[0].Kind)
			}
		}
	}
	if !found {
		t.Fatal("expected capability_denial firing")
	}

	for _, text := range []string{"She is too old.", "He is old to learn", "too young to"} {
		if rules := rulesFired(f.firings(text), model.CategoryAge); rules["capability_denial"] != 0 {
			t.Errorf("%q: expected no capability firing, got %v", text, rules)
		}
	}
}

func TestEngine_Essentialism(t *testing.T) {
	f := newFixture(t)
	firings := f.firings("Women are naturally better at nursing and teaching, while men excel in engineering and leadership roles.")
	rules := rulesFired(firings, model.CategoryGender)
	if rules["essentialism"] != 1 {
		t.Errorf("expected one essentialism firing, got %v", rules)
	}
	if len(rules) != 1 {
		t.Errorf("expected only essentialism to fire, got %v", rules)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	f := newFixture(t)
	text := "The female CEO was surprisingly competent, unlike most women in business. She must have had help from the male executives to get there."
	a := f.firings(text)
	b := f.firings(text)
	if len(a) != len(b) {
		t.Fatalf("firing counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Rule != b[i].Rule || firingKey(a[i].Rule, a[i].Evidence) != firingKey(b[i].Rule, b[i].Evidence) {
			t.Errorf("firing %d differs", i)
		}
	}
}

func TestEngine_RuleOverrides(t *testing.T) {
	var b strings.Builder
	b.WriteString("categories:\n")
	for _, c := range model.AllCategories() {
		b.WriteString("  " + c.String() + ":\n    groups:\n      a: [alpha" + c.String() + "]\n")
		b.WriteString("    traits:\n      t: [beta" + c.String() + "]\n")
	}
	b.WriteString("    rules:\n      - name: tight\n        kind: attribute\n        traits: [t]\n        window: 1\n        weight: 0.9\n")
	store, err := lexicon.Load([]byte(b.String()), "test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	engine := NewEngine(store, model.DefaultDetectionConfig())
	matcher := extract.NewMatcher(store)

	firings := engine.Evaluate(matcher.Scan("alphaage x betaage"))
	if len(firings) != 1 || firings[0].Weight != 0.9 {
		t.Fatalf("expected one firing with weight 0.9, got %+v", firings)
	}
	if firings := engine.Evaluate(matcher.Scan("alphaage x y betaage")); len(firings) != 0 {
		t.Errorf("expected rule window to limit firing, got %+v", firings)
	}
}

func TestDistance(t *testing.T) {
	a := model.Match{TokenStart: 0, TokenEnd: 1}
	b := model.Match{TokenStart: 1, TokenEnd: 2}
	c := model.Match{TokenStart: 5, TokenEnd: 7}
	if distance(a, b) != 0 {
		t.Error("adjacent spans should be 0 apart")
	}
	if distance(a, c) != 4 || distance(c, a) != 4 {
		t.Errorf("expected distance 4, got %d", distance(a, c))
	}
	if !overlaps(model.Match{TokenStart: 0, TokenEnd: 3}, b) {
		t.Error("expected overlap")
	}
}
