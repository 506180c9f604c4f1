// Package books stores the catalog in PostgreSQL and serves listing, detail
// and recommendation endpoints over it.
package books

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/book-search/internal/index"
)

// Domain errors for book operations.
var (
	ErrNotFound     = errors.New("book not found")
	ErrDuplicate    = errors.New("book already exists")
	ErrInvalidTopK  = errors.New("top_k must be a positive integer")
	ErrCatalogEmpty = errors.New("catalog has no books to sync")
)

// MapHTTPStatus maps domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTopK):
		return http.StatusBadRequest
	case errors.Is(err, index.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
