// Package index owns the similarity models built from the catalog. Models are
// built at startup, or restored from a compressed blob keyed by the catalog
// fingerprint and model parameters.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/pkg/lifecycle"
	"github.com/JaimeStill/book-search/pkg/lsa"
	"github.com/JaimeStill/book-search/pkg/pca"
	"github.com/JaimeStill/book-search/pkg/storage"
)

const (
	sourceBuild = "build"
	sourceCache = "cache"
)

// Index pairs the document and image models. Images is nil when no cover
// could be indexed.
type Index struct {
	Documents *lsa.Model
	Images    *pca.Model
}

// Options are the model parameters.
type Options struct {
	DocumentComponents int
	ImageComponents    int
	Shape              pca.Shape
	DisableCache       bool
}

// OptionsFromConfig maps the index configuration section.
func OptionsFromConfig(cfg *config.IndexConfig) Options {
	return Options{
		DocumentComponents: cfg.DocumentComponents,
		ImageComponents:    cfg.ImageComponents,
		Shape:              cfg.ImageShape(),
		DisableCache:       cfg.DisableCache,
	}
}

// System serves the current index.
type System interface {
	// Current returns the loaded index or ErrNotReady.
	Current() (*Index, error)

	// Catalog returns the catalog the index was built from.
	Catalog() *catalog.Catalog

	// Load restores the index from cache or builds it. force skips the cache
	// read; the cache is still written. A failed cache write is logged.
	Load(ctx context.Context, force bool) (*Index, error)

	// Save behaves like Load but returns a failed cache write as an error,
	// after the built index has been published.
	Save(ctx context.Context, force bool) (*Index, error)

	// Start loads the index in a lifecycle startup hook.
	Start(lc *lifecycle.Coordinator) error
}

type system struct {
	catalog *catalog.Catalog
	store   storage.System
	opts    Options
	logger  *slog.Logger
	metrics *metrics
	current atomic.Pointer[Index]
}

// New creates the index system. Metrics are registered on reg when it is
// not nil.
func New(c *catalog.Catalog, store storage.System, opts Options, logger *slog.Logger, namespace string, reg prometheus.Registerer) System {
	return &system{
		catalog: c,
		store:   store,
		opts:    opts,
		logger:  logger.With("system", "index"),
		metrics: newMetrics(namespace, reg),
	}
}

func (s *system) Catalog() *catalog.Catalog { return s.catalog }

func (s *system) Current() (*Index, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, ErrNotReady
	}
	return idx, nil
}

func (s *system) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		if _, err := s.Load(lc.Context(), false); err != nil {
			s.logger.Error("index load failed", "error", err)
		}
	})
	return nil
}

func (s *system) Load(ctx context.Context, force bool) (*Index, error) {
	idx, err := s.load(ctx, force)
	var werr *cacheWriteError
	if errors.As(err, &werr) {
		s.logger.Warn("index cache write failed", "key", werr.key, "error", werr.err)
		return idx, nil
	}
	return idx, err
}

func (s *system) Save(ctx context.Context, force bool) (*Index, error) {
	if s.opts.DisableCache {
		return nil, ErrCacheDisabled
	}
	return s.load(ctx, force)
}

type cacheWriteError struct {
	key string
	err error
}

func (e *cacheWriteError) Error() string {
	return fmt.Sprintf("write index cache %s: %v", e.key, e.err)
}

func (e *cacheWriteError) Unwrap() error { return e.err }

func (s *system) load(ctx context.Context, force bool) (*Index, error) {
	start := time.Now()
	key := s.cacheKey()

	if !force && !s.opts.DisableCache {
		idx, err := s.readCache(ctx, key)
		switch {
		case err == nil:
			s.publish(idx, sourceCache, time.Since(start))
			return idx, nil
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Info("index cache miss", "key", key)
		default:
			s.logger.Warn("index cache unusable", "key", key, "error", err)
		}
	}

	s.logger.Info("building index", "books", s.catalog.Len())
	idx, err := Build(ctx, s.catalog, s.opts, s.logger)
	if err != nil {
		return nil, err
	}

	var werr error
	if !s.opts.DisableCache {
		if err := s.writeCache(ctx, key, idx); err != nil {
			werr = &cacheWriteError{key: key, err: err}
		}
	}

	s.publish(idx, sourceBuild, time.Since(start))
	return idx, werr
}

func (s *system) publish(idx *Index, source string, elapsed time.Duration) {
	s.current.Store(idx)
	s.metrics.observe(idx, source, elapsed)

	attrs := []any{
		"source", source,
		"duration", elapsed,
		"documents", idx.Documents.Docs,
		"terms", idx.Documents.VocabularySize(),
		"document_components", idx.Documents.K(),
	}
	if idx.Images != nil {
		attrs = append(attrs, "images", idx.Images.Len(), "image_components", idx.Images.K())
	}
	s.logger.Info("index ready", attrs...)
}

func (s *system) cacheKey() string {
	return fmt.Sprintf(
		"index/%s-d%d-i%d-%dx%d.gob.zst",
		s.catalog.Fingerprint(),
		s.opts.DocumentComponents,
		s.opts.ImageComponents,
		s.opts.Shape.Width,
		s.opts.Shape.Height,
	)
}

func (s *system) readCache(ctx context.Context, key string) (*Index, error) {
	data, err := s.store.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}

	snap, err := decode(data)
	if err != nil {
		return nil, err
	}
	if snap.Index == nil || snap.Index.Documents == nil ||
		snap.Fingerprint != s.catalog.Fingerprint() ||
		snap.Books != s.catalog.Len() ||
		snap.Index.Documents.Docs != s.catalog.Len() {
		return nil, ErrStale
	}
	return snap.Index, nil
}

func (s *system) writeCache(ctx context.Context, key string, idx *Index) error {
	data, err := encode(snapshot{
		Fingerprint: s.catalog.Fingerprint(),
		Books:       s.catalog.Len(),
		Index:       idx,
	})
	if err != nil {
		return err
	}
	return s.store.Store(ctx, key, data)
}
