// Package vector holds the dense vector helpers shared by the similarity
// models.
package vector

import (
	"cmp"
	"math"
	"slices"
)

// Scored pairs an item index with its score.
type Scored struct {
	Index int
	Score float64
}

// Dot returns the inner product of a and b, which must have equal length.
func Dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Norm returns the Euclidean length of v.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// Normalize scales v to unit length in place. Vectors with length at or
// below eps are left unchanged. It returns the original length.
func Normalize(v []float64, eps float64) float64 {
	n := Norm(v)
	if n <= eps {
		return n
	}
	for i := range v {
		v[i] /= n
	}
	return n
}

// TopK returns the k highest scores, ties broken by lower index. Items for
// which skip returns true are excluded. A nil skip keeps everything.
func TopK(scores []float64, k int, skip func(int) bool) []Scored {
	return top(scores, k, skip, true)
}

// BottomK returns the k lowest scores, ties broken by lower index.
func BottomK(scores []float64, k int, skip func(int) bool) []Scored {
	return top(scores, k, skip, false)
}

func top(scores []float64, k int, skip func(int) bool, desc bool) []Scored {
	if k <= 0 {
		return []Scored{}
	}

	items := make([]Scored, 0, len(scores))
	for i, s := range scores {
		if skip != nil && skip(i) {
			continue
		}
		items = append(items, Scored{Index: i, Score: s})
	}

	slices.SortStableFunc(items, func(a, b Scored) int {
		if desc {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Score, b.Score)
	})

	if len(items) > k {
		items = items[:k]
	}
	return items
}
