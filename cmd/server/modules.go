package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/book-search/internal/api"
	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/internal/infrastructure"
	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/module"
	"github.com/JaimeStill/book-search/web/app"
	"github.com/JaimeStill/book-search/web/scalar"
)

// Modules holds the mounted HTTP modules and the client app.
type Modules struct {
	API    *module.Module
	Scalar *module.Module
	App    *app.App

	domain *api.Domain
}

// NewModules builds every module over infra and the index.
func NewModules(infra *infrastructure.Infrastructure, idx index.System, cfg *config.Config) (*Modules, error) {
	metrics := middleware.NewMetrics(infrastructure.MetricsNamespace, infra.Registry)

	runtime := api.NewRuntime(cfg, infra, idx, metrics)

	domain, err := api.NewDomain(runtime, cfg)
	if err != nil {
		return nil, err
	}

	apiModule, err := api.NewModule(cfg, runtime, domain)
	if err != nil {
		return nil, fmt.Errorf("api module: %w", err)
	}

	scalarModule, err := scalar.NewModule("/scalar", cfg.API.BasePath+"/openapi.json")
	if err != nil {
		return nil, fmt.Errorf("scalar module: %w", err)
	}

	client, err := app.New(app.Options{
		APIBase: cfg.API.BasePath,
		Data:    idx.Catalog().FS(),
		Logger:  infra.Logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return &Modules{
		API:    apiModule,
		Scalar: scalarModule,
		App:    client,
		domain: domain,
	}, nil
}

// Mount registers the modules on router. The app owns every path no
// module or native route claims.
func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	router.Mount(m.Scalar)
	router.HandleNativeHandler("/", m.App.Handler())
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	router.HandleNativeHandler("GET /metrics", promhttp.HandlerFor(infra.Registry, promhttp.HandlerOpts{}))

	return router
}

func openCatalog(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*catalog.Catalog, error) {
	c, err := catalog.Open(ctx, cfg.Dataset.Dir, cfg.Dataset.Manifest, infra.Logger)
	if err != nil {
		return nil, fmt.Errorf("catalog open failed: %w", err)
	}
	infra.Logger.Info("catalog opened", "books", c.Len(), "dir", cfg.Dataset.Dir)
	return c, nil
}
