package api

import (
	"net/http"

	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/pkg/openapi"
	"github.com/JaimeStill/book-search/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	spec *openapi.Spec,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		cfg.API.BasePath,
		spec,
		domain.Books.Handler().Routes(),
		domain.Search.Handler().Routes(),
	)
}
