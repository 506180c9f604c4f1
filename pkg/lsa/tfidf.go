package lsa

import "math"

// IDF returns log10(n / (1 + df)) for every term, where df counts the
// columns a term appears in.
func IDF(columns [][]Entry, terms int) []float64 {
	df := make([]float64, terms)
	for _, col := range columns {
		for _, e := range col {
			df[e.Term]++
		}
	}

	n := float64(len(columns))
	idf := make([]float64, terms)
	for i, d := range df {
		idf[i] = math.Log10(n / (1 + d))
	}
	return idf
}

// Weight converts a count column into tf-idf weights in place. tf is the
// count divided by length; a zero length is treated as one.
func Weight(col []Entry, length int, idf []float64) []Entry {
	l := float64(length)
	if l == 0 {
		l = 1
	}
	for i := range col {
		col[i].Value = col[i].Value / l * idf[col[i].Term]
	}
	return col
}
