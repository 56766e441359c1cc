package model

import (
	"fmt"
	"strings"
)

// Category is one of the fixed bias dimensions the engine knows about.
// The declaration order below is the canonical order used for
// bias_categories and for highlight tie-breaks.
type Category int

const (
	CategoryGender Category = iota
	CategoryRace
	CategoryReligion
	CategoryPolitical
	CategorySocioeconomic
	CategoryAge

	numCategories
)

// NumCategories is the size of the closed category set
const NumCategories = int(numCategories)

var categoryNames = [NumCategories]string{
	"gender",
	"race",
	"religion",
	"political",
	"socioeconomic",
	"age",
}

// AllCategories returns every category in declaration order
func AllCategories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

func (c Category) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryNames[c]
}

// Valid reports whether c is a member of the closed set
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

// ParseCategory converts a lowercase category name to its Category
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// ParseCategories parses a list of names, skipping unknown ones.
// Unknown names are returned separately so callers can warn about them.
func ParseCategories(names []string) (known []Category, unknown []string) {
	seen := make(map[Category]bool)
	for _, n := range names {
		c, err := ParseCategory(n)
		if err != nil {
			unknown = append(unknown, n)
			continue
		}
		if !seen[c] {
			seen[c] = true
			known = append(known, c)
		}
	}
	return known, unknown
}

// MarshalText makes categories render by name in JSON (including map keys) and YAML
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses a category name
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CategoryInfo carries the human-facing description and rewrite advice for a category
type CategoryInfo struct {
	Category       Category `json:"category"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

var categoryInfo = [NumCategories]CategoryInfo{
	{
		Category:       CategoryGender,
		Description:    "Gender-based stereotypes and imbalances",
		Recommendation: "Consider using gender-neutral language or ensuring balanced representation of all genders.",
	},
	{
		Category:       CategoryRace,
		Description:    "Racial and ethnic bias",
		Recommendation: "Review racial or ethnic references to ensure they are relevant and non-stereotypical.",
	},
	{
		Category:       CategoryReligion,
		Description:    "Religious bias and stereotypes",
		Recommendation: "Ensure religious references are neutral and avoid stereotypical associations.",
	},
	{
		Category:       CategoryPolitical,
		Description:    "Political bias and loaded language",
		Recommendation: "Consider using more neutral language and presenting multiple perspectives.",
	},
	{
		Category:       CategorySocioeconomic,
		Description:    "Socioeconomic stereotypes and class bias",
		Recommendation: "Avoid stereotypes related to socioeconomic status and class.",
	},
	{
		Category:       CategoryAge,
		Description:    "Age-based stereotypes about older or younger people",
		Recommendation: "Avoid attributing abilities or attitudes to people based on their age or generation.",
	},
}

// Info returns the description and recommendation for c
func (c Category) Info() CategoryInfo {
	if !c.Valid() {
		return CategoryInfo{Category: c}
	}
	return categoryInfo[c]
}
