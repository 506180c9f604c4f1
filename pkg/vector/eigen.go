package vector

import (
	"cmp"
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ErrFactorize is returned when a symmetric eigen decomposition does not
// converge.
var ErrFactorize = errors.New("vector: eigen decomposition failed")

// Spectrum is the leading part of the eigen decomposition of a Gram matrix
// AᵀA, expressed as singular values of A and right singular vectors.
type Spectrum struct {
	// Sigma holds singular values in descending order.
	Sigma []float64
	// V holds the right singular vectors, one row per Gram row and one
	// column per singular value (row-major, len(Sigma) columns).
	V []float64
}

// Rank returns the number of retained components.
func (s Spectrum) Rank() int { return len(s.Sigma) }

// At returns V[i, j].
func (s Spectrum) At(i, j int) float64 { return s.V[i*len(s.Sigma)+j] }

// TopSpectrum factorizes the Gram matrix g and keeps at most k components
// whose singular value sqrt(max(λ, 0)) exceeds tol.
func TopSpectrum(g *mat.SymDense, k int, tol float64) (Spectrum, error) {
	var es mat.EigenSym
	if ok := es.Factorize(g, true); !ok {
		return Spectrum{}, ErrFactorize
	}

	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(values[b], values[a])
	})

	sigma := make([]float64, 0, k)
	keep := make([]int, 0, k)
	for _, idx := range order {
		if len(sigma) == k {
			break
		}
		s := math.Sqrt(math.Max(values[idx], 0))
		if s <= tol {
			break
		}
		sigma = append(sigma, s)
		keep = append(keep, idx)
	}

	n, _ := g.Dims()
	r := len(sigma)
	v := make([]float64, n*r)
	for i := range n {
		for j, idx := range keep {
			v[i*r+j] = vecs.At(i, idx)
		}
	}

	return Spectrum{Sigma: sigma, V: v}, nil
}
