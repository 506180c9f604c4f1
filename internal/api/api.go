// Package api assembles the JSON API module: book catalog and similarity
// search routes, their OpenAPI document and the module middleware stack.
package api

import (
	"net/http"

	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/module"
	"github.com/JaimeStill/book-search/pkg/openapi"
)

// NewModule builds the API module mounted at cfg.API.BasePath.
func NewModule(cfg *config.Config, runtime *Runtime, domain *Domain) (*module.Module, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.Domain)

	mux := http.NewServeMux()
	registerRoutes(mux, spec, domain, cfg)

	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, err
	}
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.TrimSlash())
	m.Use(middleware.RequestID())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	if runtime.Metrics != nil {
		m.Use(runtime.Metrics.Middleware(cfg.API.BasePath + "/*"))
	}

	return m, nil
}
