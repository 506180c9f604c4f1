package search

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/JaimeStill/book-search/internal/books"
	"github.com/JaimeStill/book-search/pkg/handlers"
	"github.com/JaimeStill/book-search/pkg/middleware"
	"github.com/JaimeStill/book-search/pkg/routes"
)

// multipartMemory is the part of a multipart form held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// DocumentRequest is the JSON body of a document search.
type DocumentRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Handler provides HTTP endpoints for similarity search.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
	limiter       *middleware.Limiter
}

// NewHandler creates a search handler. Requests are rate limited per client
// when limiter is not nil.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64, limiter *middleware.Limiter) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "search"),
		maxUploadSize: maxUploadSize,
		limiter:       limiter,
	}
}

// Routes returns the route configuration for search endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/search",
		Tags:        []string{"Search"},
		Description: "Find books by cover image or free text",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/image", Handler: h.limit(h.Image), OpenAPI: Spec.Image},
			{Method: "POST", Pattern: "/document", Handler: h.limit(h.Document), OpenAPI: Spec.Document},
		},
		Schemas: Spec.Schemas(),
	}
}

func (h *Handler) limit(fn http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return fn
	}
	return middleware.RateLimit(h.limiter)(fn).ServeHTTP
}

// Image handles POST /image - multipart field "image".
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	data, err := h.readUpload(w, r, "image", ErrNoImage)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	k, err := books.TopKFromQuery(r.FormValue("top_k"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	results, err := h.sys.Image(r.Context(), data, k)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Document handles POST /document - a JSON query or a multipart text file
// in field "document".
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	var (
		text string
		raw  string
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		data, err := h.readUpload(w, r, "document", ErrNoDocument)
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		if !isText(data) {
			handlers.RespondError(w, h.logger, http.StatusUnsupportedMediaType, ErrUnsupportedMedia)
			return
		}
		text = string(data)
		raw = r.FormValue("top_k")
	} else {
		var req DocumentRequest
		if err := handlers.DecodeJSON(r, &req, h.maxUploadSize); err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		text = req.Query
		if req.TopK != 0 {
			raw = fmt.Sprint(req.TopK)
		}
	}

	k, err := books.TopKFromQuery(raw)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	results, err := h.sys.Document(r.Context(), text, k)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// readUpload reads the named multipart file, bounded by the upload limit.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, field string, missing error) ([]byte, error) {
	if r.ContentLength > h.maxUploadSize {
		return nil, ErrTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			return nil, ErrTooLarge
		}
		return nil, missing
	}

	file, header, err := r.FormFile(field)
	if err != nil || header.Filename == "" {
		return nil, missing
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if tooLarge(err) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("read %s: %w", field, err)
	}

	return data, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
