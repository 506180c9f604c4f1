package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JaimeStill/book-search/internal/books"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/pca"
	"github.com/JaimeStill/book-search/pkg/textproc"
)

// DefaultCacheSize bounds the number of cached document queries.
const DefaultCacheSize = 256

var imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// System defines the interface for similarity search.
type System interface {
	Handler() *Handler

	// Image returns up to k books whose covers are nearest to the encoded
	// image in data.
	Image(ctx context.Context, data []byte, k int) ([]books.Recommendation, error)

	// Document returns up to k books whose text is most similar to text.
	Document(ctx context.Context, text string, k int) ([]books.Recommendation, error)
}

// Options configure the search system and its handler. A nil Limiter
// disables rate limiting.
type Options struct {
	MaxUploadSize int64
	CacheSize     int
	Limiter       *middleware.Limiter
}

type queryKey struct {
	idx   *index.Index
	terms string
	k     int
}

type searcher struct {
	index  index.System
	logger *slog.Logger
	opts   Options
	cache  *lru.Cache[queryKey, []books.Recommendation]
}

// New creates the search system over idx.
func New(idx index.System, logger *slog.Logger, opts Options) (System, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	cache, err := lru.New[queryKey, []books.Recommendation](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}

	return &searcher{
		index:  idx,
		logger: logger.With("system", "search"),
		opts:   opts,
		cache:  cache,
	}, nil
}

func (s *searcher) Handler() *Handler {
	return NewHandler(s, s.logger, s.opts.MaxUploadSize, s.opts.Limiter)
}

func (s *searcher) Image(ctx context.Context, data []byte, k int) ([]books.Recommendation, error) {
	if k < 1 {
		return nil, books.ErrInvalidTopK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), imageTypes...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, detected.String())
	}

	cur, err := s.index.Current()
	if err != nil {
		return nil, err
	}
	if cur.Images == nil {
		return nil, index.ErrNoImages
	}

	pixels, err := pca.Load(bytes.NewReader(data), cur.Images.Shape)
	if err != nil {
		if errors.Is(err, pca.ErrDecode) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return nil, err
	}

	neighbors, err := cur.Images.Nearest(pixels, k)
	if err != nil {
		return nil, err
	}

	catalog := s.index.Catalog()
	results := make([]books.Recommendation, 0, len(neighbors))
	for _, n := range neighbors {
		if b, ok := catalog.At(n.Item); ok {
			results = append(results, books.RecommendationOf(b, n.Similarity))
		}
	}

	return results, nil
}

func (s *searcher) Document(ctx context.Context, text string, k int) ([]books.Recommendation, error) {
	if k < 1 {
		return nil, books.ErrInvalidTopK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	tokens := textproc.Preprocess(text)
	if len(tokens) == 0 {
		return []books.Recommendation{}, nil
	}

	cur, err := s.index.Current()
	if err != nil {
		return nil, err
	}

	key := queryKey{idx: cur, terms: strings.Join(tokens, " "), k: k}
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	catalog := s.index.Catalog()
	scored := cur.Documents.Query(tokens, k)
	results := make([]books.Recommendation, 0, len(scored))
	for _, sc := range scored {
		if b, ok := catalog.At(sc.Index); ok {
			results = append(results, books.RecommendationOf(b, sc.Score))
		}
	}

	s.cache.Add(key, results)
	return results, nil
}

// isText reports whether data sniffs as text/plain or a subtype of it.
func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
