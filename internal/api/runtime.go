package api

import (
	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/internal/infrastructure"
	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Index      index.System
	Pagination pagination.Config
	Limiter    *middleware.Limiter
	Metrics    *middleware.Metrics
}

// NewRuntime creates an API runtime with a module-scoped logger. The rate
// limiter is nil when rate limiting is disabled.
func NewRuntime(
	cfg *config.Config,
	infra *infrastructure.Infrastructure,
	idx index.System,
	metrics *middleware.Metrics,
) *Runtime {
	var limiter *middleware.Limiter
	if cfg.API.RateLimit.Enabled {
		limiter = middleware.NewLimiter(&cfg.API.RateLimit)
	}

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Registry:  infra.Registry,
		},
		Index:      idx,
		Pagination: cfg.API.Pagination,
		Limiter:    limiter,
		Metrics:    metrics,
	}
}
