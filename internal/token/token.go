// Package token splits raw text into position-indexed word tokens.
//
// Offsets are reported in characters (code points) of the original text so
// callers can slice the text the same way the lexicon sees it. Normalisation
// happens per token, never on the whole text, so it cannot shift offsets.
package token

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Token is one word of the source text
type Token struct {
	Text      string // Surface form as it appears in the source
	Norm      string // Lowercased, accent-folded form used for lookups
	Start     int    // Character offset of the first rune
	End       int    // Character offset one past the last rune
	ByteStart int
	ByteEnd   int
	Index     int // Position in the token sequence
	Sentence  int // Sentence index, split on . ! ?
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips combining accents
func Fold(s string) string {
	lower := strings.ToLower(s)
	if isASCII(lower) {
		return lower
	}
	folded, _, err := transform.String(stripAccents, lower)
	if err != nil {
		return lower
	}
	return folded
}

// Tokenize splits text into word tokens. A word is a maximal run of letters,
// digits and combining marks; everything else separates words. Invalid UTF-8
// bytes count as one separator character each.
func Tokenize(text string) []Token {
	var tokens []Token

	sentence := 0
	pendingBreak := false
	inWord := false
	var cur Token
	chars := 0

	// range yields utf8.RuneError once per invalid byte, so each counts as
	// a single separator character
	for i, r := range text {
		if isWordRune(r) {
			if !inWord {
				if pendingBreak && len(tokens) > 0 {
					sentence++
				}
				pendingBreak = false
				cur = Token{Start: chars, ByteStart: i, Sentence: sentence}
				inWord = true
			}
		} else {
			if inWord {
				tokens = appendToken(tokens, text, cur, chars, i)
				inWord = false
			}
			if r == '.' || r == '!' || r == '?' {
				pendingBreak = true
			}
		}
		chars++
	}
	if inWord {
		tokens = appendToken(tokens, text, cur, chars, len(text))
	}

	return tokens
}

// Split returns the folded word sequence of a phrase, e.g. "Inner-City" -> [inner city]
func Split(phrase string) []string {
	toks := Tokenize(phrase)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Norm
	}
	return out
}

// CountSentences returns the number of sentences that contain at least one token
func CountSentences(tokens []Token) int {
	if len(tokens) == 0 {
		return 0
	}
	return tokens[len(tokens)-1].Sentence + 1
}

func appendToken(tokens []Token, text string, cur Token, endChar, endByte int) []Token {
	cur.End = endChar
	cur.ByteEnd = endByte
	cur.Text = text[cur.ByteStart:endByte]
	cur.Norm = Fold(cur.Text)
	cur.Index = len(tokens)
	return append(tokens, cur)
}

func isWordRune(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
