// Package lsa implements latent semantic analysis over tokenized documents:
// tf-idf weighting followed by a truncated singular value decomposition of
// the term-document matrix.
package lsa

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/JaimeStill/book-search/pkg/vector"
)

const (
	// DefaultComponents is the number of latent dimensions kept by Fit.
	DefaultComponents = 100

	sigmaTolerance = 1e-7
	normTolerance  = 1e-10
)

// Model is a fitted LSA space. Its exported fields are the persisted form;
// a decoded Model is usable without further setup.
type Model struct {
	Terms []string
	IDF   []float64
	Sigma []float64
	// Basis is U_k (terms × k, row-major), used to fold queries in.
	Basis []float64
	// Embeddings holds the L2-normalised rows of V_k Σ_k (docs × k).
	Embeddings []float64
	Docs       int

	once  sync.Once
	vocab *Vocabulary
}

// Fit builds a model from tokenized documents keeping at most k components.
// k is clamped to the rank of the term-document matrix.
func Fit(ctx context.Context, docs [][]string, k int) (*Model, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	if k <= 0 {
		k = DefaultComponents
	}

	vocab := NewVocabulary(docs)
	cols := make([][]Entry, len(docs))
	for i, doc := range docs {
		cols[i], _ = vocab.Counts(doc)
	}

	idf := IDF(cols, vocab.Len())
	for i, doc := range docs {
		Weight(cols[i], len(doc), idf)
	}

	g, err := gram(ctx, cols, vocab.Len())
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

	r := spec.Rank()
	n := len(docs)

	embeddings := make([]float64, n*r)
	for i := range n {
		row := embeddings[i*r : (i+1)*r]
		for j := range r {
			row[j] = spec.At(i, j) * spec.Sigma[j]
		}
		vector.Normalize(row, normTolerance)
	}

	basis := make([]float64, vocab.Len()*r)
	for i, col := range cols {
		for _, e := range col {
			row := basis[e.Term*r : (e.Term+1)*r]
			for j := range r {
				row[j] += e.Value * spec.At(i, j) / spec.Sigma[j]
			}
		}
	}

	return &Model{
		Terms:      vocab.Terms(),
		IDF:        idf,
		Sigma:      spec.Sigma,
		Basis:      basis,
		Embeddings: embeddings,
		Docs:       n,
		vocab:      vocab,
	}, nil
}

// K returns the number of latent dimensions.
func (m *Model) K() int { return len(m.Sigma) }

// VocabularySize returns the number of distinct terms.
func (m *Model) VocabularySize() int { return len(m.Terms) }

// Similar returns the top k documents most similar to doc by cosine
// similarity, excluding doc itself.
func (m *Model) Similar(doc, k int) ([]vector.Scored, error) {
	if doc < 0 || doc >= m.Docs {
		return nil, ErrUnknownDoc
	}

	target := m.embedding(doc)
	scores := make([]float64, m.Docs)
	for i := range m.Docs {
		scores[i] = vector.Dot(target, m.embedding(i))
	}

	return vector.TopK(scores, k, func(i int) bool { return i == doc }), nil
}

// Query folds tokens into the latent space and returns the top k documents
// by cosine similarity. Queries with no known terms yield no results.
func (m *Model) Query(tokens []string, k int) []vector.Scored {
	m.once.Do(func() {
		if m.vocab == nil {
			m.vocab = vocabularyFromTerms(m.Terms)
		}
	})

	counts, total := m.vocab.Counts(tokens)
	if len(counts) == 0 {
		return []vector.Scored{}
	}
	Weight(counts, total, m.IDF)

	r := m.K()
	q := make([]float64, r)
	for _, e := range counts {
		row := m.Basis[e.Term*r : (e.Term+1)*r]
		for j := range r {
			q[j] += e.Value * row[j]
		}
	}
	if vector.Normalize(q, normTolerance) <= normTolerance {
		return []vector.Scored{}
	}

	scores := make([]float64, m.Docs)
	for i := range m.Docs {
		scores[i] = vector.Dot(q, m.embedding(i))
	}
	return vector.TopK(scores, k, nil)
}

func (m *Model) embedding(i int) []float64 {
	r := m.K()
	return m.Embeddings[i*r : (i+1)*r]
}

// gram computes AᵀA for the sparse columns of A. Rows are distributed over
// GOMAXPROCS workers; each worker scatters its column into a dense scratch
// vector and dots it against the remaining columns.
func gram(ctx context.Context, cols [][]Entry, terms int) (*mat.SymDense, error) {
	n := len(cols)
	g := mat.NewSymDense(n, nil)

	eg, ctx := errgroup.WithContext(ctx)
	rows := make(chan int)

	eg.Go(func() error {
		defer close(rows)
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case rows <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range runtime.GOMAXPROCS(0) {
		eg.Go(func() error {
			scratch := make([]float64, terms)
			for i := range rows {
				for _, e := range cols[i] {
					scratch[e.Term] = e.Value
				}
				for j := i; j < n; j++ {
					var s float64
					for _, e := range cols[j] {
						s += scratch[e.Term] * e.Value
					}
					g.SetSym(i, j, s)
				}
				for _, e := range cols[i] {
					scratch[e.Term] = 0
				}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}
