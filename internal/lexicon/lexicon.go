// Package lexicon holds the immutable catalog of group terms, trait terms and
// pattern rules the detector matches against.
//
// A Store is built once (Default, Load or LoadFile) and only read afterwards,
// so a single Store can be shared by any number of goroutines.
package lexicon

import (
	"strings"

	"github.com/ppiankov/slant/internal/model"
)

// SharedPrefix marks references to cross-category lists in rules
const SharedPrefix = "shared."

// Term is one lexicon entry compiled to its folded token sequence
type Term struct {
	Surface  string         // Canonical form as written in the table
	Tokens   []string       // Folded token sequence matched against text
	Category model.Category // Owning category (meaningless when Shared)
	Kind     model.MatchKind
	List     string // Group side, trait list, or "shared.<name>"
	Shared   bool
}

// List is a named set of terms
type List struct {
	Name  string
	Terms []Term
}

// RuleKind selects how a pattern rule is evaluated
type RuleKind string

const (
	RuleAttribute  RuleKind = "attribute"  // Group term near a trait term
	RuleContrast   RuleKind = "contrast"   // Opposing group sides with different traits across a connective
	RuleBackhanded RuleKind = "backhanded" // Positive trait qualified by surprise or exception framing
	RuleCluster    RuleKind = "cluster"    // Several loaded traits tied to one group term
	RuleCapability RuleKind = "capability" // "too <group> to <verb>"
)

// Valid reports whether k is a known rule kind
func (k RuleKind) Valid() bool {
	switch k {
	case RuleAttribute, RuleContrast, RuleBackhanded, RuleCluster, RuleCapability:
		return true
	}
	return false
}

// Severe reports whether firings of this kind carry the heavier default weight
func (k RuleKind) Severe() bool {
	return k == RuleBackhanded || k == RuleCluster
}

// Phrase is a folded token sequence such as [for a]
type Phrase []string

func (p Phrase) String() string {
	return strings.Join(p, " ")
}

// Rule is a compiled pattern rule
type Rule struct {
	Name        string
	Kind        RuleKind
	Groups      []string // Group sides the rule applies to; empty means every side
	Traits      []string // Trait lists, own or shared
	BeforeTrait []Phrase
	BeforeGroup []Phrase
	AfterGroup  []Phrase
	Between     []Phrase
	MinTraits   int
	Window      int     // 0 means the detector default
	Weight      float64 // 0 means the kind default
}

// AppliesToGroup reports whether a group-side match is in scope for the rule
func (r Rule) AppliesToGroup(side string) bool {
	if len(r.Groups) == 0 {
		return true
	}
	return contains(r.Groups, side)
}

// UsesTraits reports whether a trait list is in scope for the rule
func (r Rule) UsesTraits(list string) bool {
	return contains(r.Traits, list)
}

// Terms is everything one category contributes
type Terms struct {
	Category model.Category
	Groups   []List
	Traits   []List
	Rules    []Rule
}

// GroupTermCount returns the number of group terms across all sides
func (t Terms) GroupTermCount() int {
	return countTerms(t.Groups)
}

// TraitTermCount returns the number of trait terms across all lists
func (t Terms) TraitTermCount() int {
	return countTerms(t.Traits)
}

// Store is the immutable lexicon catalog
type Store struct {
	terms   [model.NumCategories]Terms
	shared  []List
	index   map[string][]Term // Keyed by first folded token, longest sequence first
	version string
	source  string
}

// Stats summarises a store for display
type Stats struct {
	Categories  int `json:"categories"`
	GroupTerms  int `json:"group_terms"`
	TraitTerms  int `json:"trait_terms"`
	SharedTerms int `json:"shared_terms"`
	Rules       int `json:"rules"`
}

// Categories returns the categories in declaration order
func (s *Store) Categories() []model.Category {
	return model.AllCategories()
}

// TermsOf returns the group terms, trait terms and rules of a category.
// The returned slices are shared with the store and must not be modified.
func (s *Store) TermsOf(c model.Category) Terms {
	if !c.Valid() {
		return Terms{Category: c}
	}
	return s.terms[c]
}

// Shared returns the cross-category lists
func (s *Store) Shared() []List {
	return s.shared
}

// Candidates returns every term whose first folded token is first, longest first
func (s *Store) Candidates(first string) []Term {
	return s.index[first]
}

// Version is a short content hash of the table the store was built from
func (s *Store) Version() string {
	return s.version
}

// Source names where the table came from ("built-in" or a file path)
func (s *Store) Source() string {
	return s.source
}

// Stats counts the entries in the store
func (s *Store) Stats() Stats {
	st := Stats{Categories: model.NumCategories, SharedTerms: countTerms(s.shared)}
	for _, t := range s.terms {
		st.GroupTerms += t.GroupTermCount()
		st.TraitTerms += t.TraitTermCount()
		st.Rules += len(t.Rules)
	}
	return st
}

func countTerms(lists []List) int {
	n := 0
	for _, l := range lists {
		n += len(l.Terms)
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
