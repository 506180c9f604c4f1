package books

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/book-search/pkg/handlers"
	"github.com/JaimeStill/book-search/pkg/pagination"
	"github.com/JaimeStill/book-search/pkg/routes"
)

// Handler provides HTTP endpoints for the book catalog.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a new books HTTP handler.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "books"),
		pagination: pagination,
	}
}

// Routes returns the route configuration for book endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/books",
		Tags:        []string{"Books"},
		Description: "Book catalog browsing and recommendations",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: Spec.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: Spec.Find},
			{Method: "GET", Pattern: "/{id}/recommendations", Handler: h.Recommendations, OpenAPI: Spec.Recommendations},
		},
		Schemas: Spec.Schemas(),
	}
}

// List handles GET / - returns paginated books with optional title search.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if values.Get("page_size") == "" && values.Get("per_page") != "" {
		values.Set("page_size", values.Get("per_page"))
	}

	page := pagination.PageRequestFromQuery(values, h.pagination)
	filters := FiltersFromQuery(values)

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find handles GET /{id} - returns a single book.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	book, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, book)
}

// Recommendations handles GET /{id}/recommendations - returns similar books.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	k, err := TopKFromQuery(r.URL.Query().Get("top_k"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	recs, err := h.sys.Recommendations(r.Context(), r.PathValue("id"), k)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

// TopKFromQuery parses a top_k parameter. An empty value yields DefaultTopK.
func TopKFromQuery(raw string) (int, error) {
	if raw == "" {
		return DefaultTopK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, ErrInvalidTopK
	}
	return k, nil
}
