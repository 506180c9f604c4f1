package lsa

import (
	"cmp"
	"slices"
)

// Entry is one non-zero cell of a sparse term column.
type Entry struct {
	Term  int
	Value float64
}

// Vocabulary maps terms to row indices. Terms are kept in sorted order.
type Vocabulary struct {
	terms []string
	index map[string]int
}

// NewVocabulary collects the sorted unique terms of docs.
func NewVocabulary(docs [][]string) *Vocabulary {
	seen := make(map[string]struct{})
	for _, doc := range docs {
		for _, t := range doc {
			seen[t] = struct{}{}
		}
	}

	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	slices.Sort(terms)

	return vocabularyFromTerms(terms)
}

func vocabularyFromTerms(terms []string) *Vocabulary {
	index := make(map[string]int, len(terms))
	for i, t := range terms {
		index[t] = i
	}
	return &Vocabulary{terms: terms, index: index}
}

func (v *Vocabulary) Len() int { return len(v.terms) }

func (v *Vocabulary) Terms() []string { return slices.Clone(v.terms) }

func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Counts returns the term counts of tokens sorted by term index, and the
// number of tokens that were in the vocabulary.
func (v *Vocabulary) Counts(tokens []string) ([]Entry, int) {
	counts := make(map[int]float64)
	total := 0
	for _, t := range tokens {
		if i, ok := v.index[t]; ok {
			counts[i]++
			total++
		}
	}

	entries := make([]Entry, 0, len(counts))
	for term, c := range counts {
		entries = append(entries, Entry{Term: term, Value: c})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Term, b.Term) })

	return entries, total
}
