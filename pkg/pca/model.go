// Package pca implements principal component analysis over grayscale
// images for nearest-neighbour image search.
package pca

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/JaimeStill/book-search/pkg/vector"
)

const (
	// DefaultComponents is the number of principal directions kept by Fit.
	DefaultComponents = 65

	sigmaTolerance = 1e-7
	exactDistance  = 1e-5
	distanceScale  = 100000
)

var (
	ErrNoSamples   = errors.New("pca: no samples")
	ErrSampleShape = errors.New("pca: sample length does not match shape")
	ErrNoRank      = errors.New("pca: samples have no variance")
)

// Neighbor is one result of a nearest-neighbour search.
type Neighbor struct {
	Item       int
	Distance   float64
	Similarity float64
}

// Model is a fitted PCA space. Its exported fields are the persisted form.
type Model struct {
	Shape Shape
	Mean  []float64
	// Components holds the principal directions (k × pixels, row-major).
	Components []float64
	// Coefficients holds the projection of every sample (samples × k).
	Coefficients []float64
	// Items maps each sample row to the caller's identifier.
	Items []int
}

// Fit computes the mean image and the top k principal directions of
// samples. items[i] identifies samples[i] in Nearest results.
func Fit(ctx context.Context, samples [][]float32, items []int, shape Shape, k int) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if len(items) != len(samples) {
		return nil, fmt.Errorf("pca: %d items for %d samples", len(items), len(samples))
	}
	if k <= 0 {
		k = DefaultComponents
	}

	d := shape.Len()
	for _, s := range samples {
		if len(s) != d {
			return nil, ErrSampleShape
		}
	}

	mean := make([]float64, d)
	for _, s := range samples {
		for p, v := range s {
			mean[p] += float64(v)
		}
	}
	for p := range mean {
		mean[p] /= float64(len(samples))
	}

	g, err := gram(ctx, samples, mean)
	if err != nil {
		return nil, err
	}

	spec, err := vector.TopSpectrum(g, k, sigmaTolerance)
	if err != nil {
		return nil, err
	}
	if spec.Rank() == 0 {
		return nil, ErrNoRank
	}

	m := &Model{
		Shape: shape,
		Mean:  mean,
		Items: append([]int(nil), items...),
	}

	if m.Components, err = components(ctx, samples, mean, spec); err != nil {
		return nil, err
	}
	if m.Coefficients, err = m.projectAll(ctx, samples); err != nil {
		return nil, err
	}
	return m, nil
}

// K returns the number of principal directions.
func (m *Model) K() int {
	if d := m.Shape.Len(); d > 0 {
		return len(m.Components) / d
	}
	return 0
}

// Len returns the number of fitted samples.
func (m *Model) Len() int { return len(m.Items) }

// Project returns the coefficients of pixels in the principal basis.
func (m *Model) Project(pixels []float32) ([]float64, error) {
	d := m.Shape.Len()
	if len(pixels) != d {
		return nil, ErrSampleShape
	}

	k := m.K()
	out := make([]float64, k)
	for j := range k {
		u := m.Components[j*d : (j+1)*d]
		var s float64
		for p, v := range pixels {
			s += u[p] * (float64(v) - m.Mean[p])
		}
		out[j] = s
	}
	return out, nil
}

// Nearest returns the k fitted samples closest to pixels, nearest first.
func (m *Model) Nearest(pixels []float32, k int) ([]Neighbor, error) {
	q, err := m.Project(pixels)
	if err != nil {
		return nil, err
	}

	r := m.K()
	dist := make([]float64, m.Len())
	for i := range dist {
		dist[i] = vector.Distance(q, m.Coefficients[i*r:(i+1)*r])
	}

	ranked := vector.BottomK(dist, k, nil)
	out := make([]Neighbor, len(ranked))
	for i, s := range ranked {
		out[i] = Neighbor{
			Item:       m.Items[s.Index],
			Distance:   s.Score,
			Similarity: Similarity(s.Score),
		}
	}
	return out, nil
}

// Similarity maps a coefficient-space distance to a score in [0, 1].
func Similarity(distance float64) float64 {
	if distance < exactDistance {
		return 1.0
	}
	return max(0, 1-distance/distanceScale)
}

func (m *Model) projectAll(ctx context.Context, samples [][]float32) ([]float64, error) {
	r := m.K()
	out := make([]float64, len(samples)*r)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, s := range samples {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := m.Project(s)
			if err != nil {
				return err
			}
			copy(out[i*r:(i+1)*r], c)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// gram computes the centred sample Gram matrix, one row per task.
func gram(ctx context.Context, samples [][]float32, mean []float64) (*mat.SymDense, error) {
	n := len(samples)
	g := mat.NewSymDense(n, nil)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i := range n {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			xi := samples[i]
			for j := i; j < n; j++ {
				xj := samples[j]
				var s float64
				for p, m := range mean {
					s += (float64(xi[p]) - m) * (float64(xj[p]) - m)
				}
				g.SetSym(i, j, s)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}

// components recovers unit principal directions u_j = Xᵀ v_j / σ_j from
// the right singular vectors of the centred sample matrix.
func components(ctx context.Context, samples [][]float32, mean []float64, spec vector.Spectrum) ([]float64, error) {
	d := len(mean)
	r := spec.Rank()
	out := make([]float64, r*d)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for j := range r {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			u := out[j*d : (j+1)*d]
			for i, x := range samples {
				w := spec.At(i, j) / spec.Sigma[j]
				for p, m := range mean {
					u[p] += w * (float64(x[p]) - m)
				}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
