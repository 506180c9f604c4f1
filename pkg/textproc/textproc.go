// Package textproc turns raw text into the stemmed index terms used by the
// document model: tokenize, lower-case, keep ASCII letters, stem, and drop
// English stop words.
package textproc

import (
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Preprocess returns the index terms of text in document order.
//
// Terms are reduced with the original Porter algorithm. Stop words are
// removed after stemming, so a stem that differs from its stop word ("was"
// stems to "wa", "this" to "thi") is kept.
func Preprocess(text string) []string {
	lower := cases.Lower(language.Und)

	tokens := Tokenize(text)
	terms := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		t := letters(lower.String(tok))
		if t == "" {
			continue
		}

		t = porterstemmer.StemString(t)
		if t == "" || IsStopWord(t) {
			continue
		}
		terms = append(terms, t)
	}

	return terms
}

// Tokenize splits text into word tokens. Whitespace and bracketing or
// clause punctuation separate tokens; hyphens, periods and apostrophes
// inside a word do not, except that English contractions are split off
// ("don't" yields "do" and "n't", "she's" yields "she" and "'s").
func Tokenize(text string) []string {
	var tokens []string

	fields := strings.FieldsFunc(text, isSeparator)
	for _, f := range fields {
		for _, part := range strings.Split(f, "--") {
			part = strings.Trim(part, ".'`-")
			if part == "" {
				continue
			}
			tokens = append(tokens, splitContraction(part)...)
		}
	}

	return tokens
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ',', ';', ':', '!', '?', '"', '(', ')', '[', ']', '{', '}', '<', '>',
		'“', '”', '—', '–', '*', '_', '/', '|':
		return true
	}
	return false
}

var contractionSuffixes = []string{"n't", "'s", "'re", "'ve", "'ll", "'d", "'m"}

func splitContraction(word string) []string {
	normalized := strings.ReplaceAll(word, "’", "'")
	lw := strings.ToLower(normalized)

	for _, suffix := range contractionSuffixes {
		if len(lw) > len(suffix) && strings.HasSuffix(lw, suffix) {
			cut := len(normalized) - len(suffix)
			return []string{normalized[:cut], normalized[cut:]}
		}
	}
	return []string{normalized}
}

// letters keeps only the ASCII letters a-z.
func letters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'a' && c <= 'z' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
