package lexicon

import (
	"errors"
	"strings"
)

// Lexicon validation errors
var (
	ErrEmptyLexicon     = errors.New("lexicon is empty")
	ErrMissingCategory  = errors.New("category missing from lexicon")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrEmptyCategory    = errors.New("category needs at least one group term and one trait term")
	ErrInvalidListName  = errors.New("invalid list name")
	ErrEmptyTerm        = errors.New("term has no word characters")
	ErrDuplicateTerm    = errors.New("duplicate term")
	ErrUnknownRuleKind  = errors.New("unknown rule kind")
	ErrUnknownList      = errors.New("rule references undefined list")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrDuplicateRule    = errors.New("duplicate rule name")
	ErrNegativeSetting  = errors.New("rule window, weight and min_traits must be non-negative")
	ErrMalformedLexicon = errors.New("malformed lexicon document")
)

// ValidationError locates one problem in a lexicon table
type ValidationError struct {
	Category string // Category name, empty for document-level problems
	Rule     string // Rule name when the problem is in a rule
	Term     string // Offending term or list reference
	Detail   string
	Err      error // One of the sentinel errors above
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("lexicon")
	if e.Category != "" {
		b.WriteString(": ")
		b.WriteString(e.Category)
	}
	if e.Rule != "" {
		b.WriteString(": rule ")
		b.WriteString(quote(e.Rule))
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Term != "" {
		b.WriteString(": ")
		b.WriteString(quote(e.Term))
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Problems flattens an error returned by Load into its individual validation errors
func Problems(err error) []error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ValidationError); ok {
		return []error{err}
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Problems(e)...)
		}
		return out
	}
	if inner := errors.Unwrap(err); inner != nil {
		if ps := Problems(inner); len(ps) > 1 {
			return ps
		} else if _, ok := ps[0].(*ValidationError); ok {
			return ps
		}
	}
	return []error{err}
}

func quote(s string) string {
	return "\"" + s + "\""
}
