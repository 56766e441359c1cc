package lexicon

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/slant/internal/model"
	"github.com/ppiankov/slant/internal/token"
)

//go:embed default.yaml
var defaultTable []byte

// BuiltinSource is the Source of the embedded table
const BuiltinSource = "built-in"

const defaultMinTraits = 2

// document mirrors the YAML table layout
type document struct {
	Version    int                    `yaml:"version"`
	Shared     map[string][]string    `yaml:"shared"`
	Categories map[string]categoryDoc `yaml:"categories"`
}

type categoryDoc struct {
	Groups map[string][]string `yaml:"groups"`
	Traits map[string][]string `yaml:"traits"`
	Rules  []ruleDoc           `yaml:"rules"`
}

type ruleDoc struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Groups      []string `yaml:"groups,omitempty"`
	Traits      []string `yaml:"traits,omitempty"`
	BeforeTrait []string `yaml:"before_trait,omitempty"`
	BeforeGroup []string `yaml:"before_group,omitempty"`
	AfterGroup  []string `yaml:"after_group,omitempty"`
	Between     []string `yaml:"between,omitempty"`
	MinTraits   int      `yaml:"min_traits,omitempty"`
	Window      int      `yaml:"window,omitempty"`
	Weight      float64  `yaml:"weight,omitempty"`
}

var builtin = sync.OnceValues(func() (*Store, error) {
	return Load(defaultTable, BuiltinSource)
})

// Default returns the store compiled from the embedded table
func Default() (*Store, error) {
	return builtin()
}

// DefaultTable returns a copy of the embedded YAML table
func DefaultTable() []byte {
	return bytes.Clone(defaultTable)
}

// LoadFile reads and compiles a YAML table from disk
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	store, err := Load(data, path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon %s: %w", path, err)
	}
	return store, nil
}

// Load parses, validates and compiles a YAML table. All validation
// problems are reported together; use Problems to list them.
func Load(data []byte, source string) (*Store, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ValidationError{Err: ErrEmptyLexicon}
		}
		return nil, &ValidationError{Err: ErrMalformedLexicon, Detail: err.Error()}
	}
	if len(doc.Categories) == 0 {
		return nil, &ValidationError{Err: ErrEmptyLexicon}
	}

	c := &compiler{}
	store := &Store{source: source}
	store.shared = c.compileShared(doc.Shared)

	known := make(map[string]bool, model.NumCategories)
	for _, cat := range model.AllCategories() {
		known[cat.String()] = true
		cd, ok := doc.Categories[cat.String()]
		if !ok {
			c.fail(&ValidationError{Category: cat.String(), Err: ErrMissingCategory})
			continue
		}
		store.terms[cat] = c.compileCategory(cat, cd, store.shared)
	}
	for _, name := range sortedKeys(doc.Categories) {
		if !known[name] {
			c.fail(&ValidationError{Category: name, Err: ErrUnknownCategory})
		}
	}

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	store.index = buildIndex(store)
	sum := sha256.Sum256(data)
	store.version = hex.EncodeToString(sum[:6])
	return store, nil
}

// compiler accumulates validation problems while building a store
type compiler struct {
	errs []error
}

func (c *compiler) fail(err *ValidationError) {
	c.errs = append(c.errs, err)
}

func (c *compiler) compileShared(shared map[string][]string) []List {
	var lists []List
	for _, name := range sortedKeys(shared) {
		ref := SharedPrefix + name
		if !validListName(name) {
			c.fail(&ValidationError{Term: ref, Err: ErrInvalidListName})
			continue
		}
		seen := make(map[string]bool)
		list := List{Name: ref}
		for _, surface := range shared[name] {
			tokens := token.Split(surface)
			if len(tokens) == 0 {
				c.fail(&ValidationError{Term: surface, Detail: ref, Err: ErrEmptyTerm})
				continue
			}
			key := strings.Join(tokens, " ")
			if seen[key] {
				c.fail(&ValidationError{Term: surface, Detail: ref, Err: ErrDuplicateTerm})
				continue
			}
			seen[key] = true
			list.Terms = append(list.Terms, Term{
				Surface: surface,
				Tokens:  tokens,
				Kind:    model.KindTrait,
				List:    ref,
				Shared:  true,
			})
		}
		lists = append(lists, list)
	}
	return lists
}

func (c *compiler) compileCategory(cat model.Category, cd categoryDoc, shared []List) Terms {
	terms := Terms{Category: cat}
	seen := make(map[string]string) // folded form -> list it first appeared in

	compileLists := func(lists map[string][]string, kind model.MatchKind) []List {
		var out []List
		for _, name := range sortedKeys(lists) {
			if !validListName(name) {
				c.fail(&ValidationError{Category: cat.String(), Term: name, Err: ErrInvalidListName})
				continue
			}
			list := List{Name: name}
			for _, surface := range lists[name] {
				tokens := token.Split(surface)
				if len(tokens) == 0 {
					c.fail(&ValidationError{Category: cat.String(), Term: surface, Detail: name, Err: ErrEmptyTerm})
					continue
				}
				key := strings.Join(tokens, " ")
				if first, dup := seen[key]; dup {
					c.fail(&ValidationError{
						Category: cat.String(),
						Term:     surface,
						Detail:   fmt.Sprintf("in %s and %s", first, name),
						Err:      ErrDuplicateTerm,
					})
					continue
				}
				seen[key] = name
				list.Terms = append(list.Terms, Term{
					Surface:  surface,
					Tokens:   tokens,
					Category: cat,
					Kind:     kind,
					List:     name,
				})
			}
			out = append(out, list)
		}
		return out
	}

	terms.Groups = compileLists(cd.Groups, model.KindGroup)
	terms.Traits = compileLists(cd.Traits, model.KindTrait)

	if terms.GroupTermCount() == 0 || terms.TraitTermCount() == 0 {
		c.fail(&ValidationError{Category: cat.String(), Err: ErrEmptyCategory})
	}

	sides := make(map[string]bool)
	for _, g := range terms.Groups {
		sides[g.Name] = true
	}
	traitLists := make(map[string]bool)
	for _, t := range terms.Traits {
		traitLists[t.Name] = true
	}
	for _, s := range shared {
		traitLists[s.Name] = true
	}

	names := make(map[string]bool)
	for _, rd := range cd.Rules {
		rule, ok := c.compileRule(cat, rd, sides, traitLists)
		if !ok {
			continue
		}
		if names[rule.Name] {
			c.fail(&ValidationError{Category: cat.String(), Rule: rule.Name, Err: ErrDuplicateRule})
			continue
		}
		names[rule.Name] = true
		terms.Rules = append(terms.Rules, rule)
	}

	return terms
}

func (c *compiler) compileRule(cat model.Category, rd ruleDoc, sides, traitLists map[string]bool) (Rule, bool) {
	ok := true
	bad := func(err error, term, detail string) {
		c.fail(&ValidationError{Category: cat.String(), Rule: rd.Name, Term: term, Detail: detail, Err: err})
		ok = false
	}

	rule := Rule{
		Name:      strings.TrimSpace(rd.Name),
		Kind:      RuleKind(rd.Kind),
		Groups:    rd.Groups,
		Traits:    rd.Traits,
		MinTraits: rd.MinTraits,
		Window:    rd.Window,
		Weight:    rd.Weight,
	}

	if rule.Name == "" {
		bad(ErrInvalidRule, "", "missing name")
	}
	if !rule.Kind.Valid() {
		bad(ErrUnknownRuleKind, rd.Kind, "")
	}
	if rd.Window < 0 || rd.Weight < 0 || rd.MinTraits < 0 {
		bad(ErrNegativeSetting, "", "")
	}
	for _, g := range rd.Groups {
		if !sides[g] {
			bad(ErrUnknownList, g, "group side")
		}
	}
	for _, t := range rd.Traits {
		if !traitLists[t] {
			bad(ErrUnknownList, t, "trait list")
		}
	}

	phrases := func(field string, raw []string) []Phrase {
		out := make([]Phrase, 0, len(raw))
		for _, p := range raw {
			tokens := token.Split(p)
			if len(tokens) == 0 {
				bad(ErrInvalidRule, p, field+" phrase has no words")
				continue
			}
			out = append(out, Phrase(tokens))
		}
		return out
	}
	rule.BeforeTrait = phrases("before_trait", rd.BeforeTrait)
	rule.BeforeGroup = phrases("before_group", rd.BeforeGroup)
	rule.AfterGroup = phrases("after_group", rd.AfterGroup)
	rule.Between = phrases("between", rd.Between)

	switch rule.Kind {
	case RuleAttribute, RuleCluster:
		if len(rule.Traits) == 0 {
			bad(ErrInvalidRule, "", "traits required")
		}
	case RuleContrast:
		if len(rule.Traits) == 0 || len(rule.Between) == 0 {
			bad(ErrInvalidRule, "", "traits and between required")
		}
	case RuleBackhanded:
		if len(rule.Traits) == 0 {
			bad(ErrInvalidRule, "", "traits required")
		}
		if len(rule.BeforeTrait) == 0 && len(rule.BeforeGroup) == 0 {
			bad(ErrInvalidRule, "", "before_trait or before_group required")
		}
	case RuleCapability:
		if len(rule.BeforeGroup) == 0 || len(rule.AfterGroup) == 0 {
			bad(ErrInvalidRule, "", "before_group and after_group required")
		}
	}

	if rule.Kind == RuleCluster {
		if rule.MinTraits == 0 {
			rule.MinTraits = defaultMinTraits
		} else if rule.MinTraits < 2 {
			bad(ErrInvalidRule, "", "min_traits must be at least 2")
		}
	}

	return rule, ok
}

func buildIndex(s *Store) map[string][]Term {
	index := make(map[string][]Term)
	add := func(lists []List) {
		for _, l := range lists {
			for _, t := range l.Terms {
				index[t.Tokens[0]] = append(index[t.Tokens[0]], t)
			}
		}
	}
	for _, t := range s.terms {
		add(t.Groups)
		add(t.Traits)
	}
	add(s.shared)

	for _, bucket := range index {
		sort.SliceStable(bucket, func(i, j int) bool {
			return len(bucket[i].Tokens) > len(bucket[j].Tokens)
		})
	}
	return index
}

// validListName rejects names that would collide with shared references
func validListName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ". \t")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
