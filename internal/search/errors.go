// Package search answers image and free-text queries against the loaded
// similarity index.
package search

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/book-search/internal/books"
	"github.com/JaimeStill/book-search/internal/index"
)

// Domain errors for search operations.
var (
	ErrNoImage          = errors.New("no image file")
	ErrNoDocument       = errors.New("no document file")
	ErrTooLarge         = errors.New("upload exceeds size limit")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrInvalidImage     = errors.New("invalid image")
	ErrEmptyQuery       = errors.New("query is empty")
)

// MapHTTPStatus maps domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoImage),
		errors.Is(err, ErrNoDocument),
		errors.Is(err, ErrInvalidImage),
		errors.Is(err, ErrEmptyQuery),
		errors.Is(err, books.ErrInvalidTopK):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, index.ErrNotReady), errors.Is(err, index.ErrNoImages):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
