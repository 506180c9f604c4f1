package api

import (
	"fmt"
	"time"

	"github.com/JaimeStill/book-search/internal/books"
	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/internal/search"
	"github.com/JaimeStill/book-search/pkg/lifecycle"
)

// sweepInterval is how often idle rate limit buckets are dropped.
const sweepInterval = time.Minute

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Books  books.System
	Search search.System

	runtime *Runtime
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *config.Config) (*Domain, error) {
	booksSys := books.New(
		runtime.Database,
		runtime.Index,
		runtime.Logger,
		runtime.Pagination,
	)

	searchSys, err := search.New(
		runtime.Index,
		runtime.Logger,
		search.Options{
			MaxUploadSize: cfg.Storage.MaxUploadSizeBytes(),
			CacheSize:     search.DefaultCacheSize,
			Limiter:       runtime.Limiter,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("search init failed: %w", err)
	}

	return &Domain{
		Books:   booksSys,
		Search:  searchSys,
		runtime: runtime,
	}, nil
}

// Start runs the book catalog migrations and sync, and sweeps idle rate
// limit buckets until shutdown. The database must already be started.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	if err := d.Books.Start(lc); err != nil {
		return err
	}

	if limiter := d.runtime.Limiter; limiter != nil {
		lc.OnShutdown(func() {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-lc.Context().Done():
					return
				case <-ticker.C:
					if n := limiter.Sweep(); n > 0 {
						d.runtime.Logger.Debug("rate limit buckets swept", "removed", n)
					}
				}
			}
		})
	}

	return nil
}
