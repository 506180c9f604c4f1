package books

import (
	"context"

	"github.com/JaimeStill/book-search/pkg/lifecycle"
	"github.com/JaimeStill/book-search/pkg/pagination"
)

// DefaultTopK is the number of recommendations returned when the caller
// does not ask for a specific count.
const DefaultTopK = 5

// System defines the interface for book catalog operations.
type System interface {
	Handler() *Handler

	// List returns a paginated list of books. The page search text matches
	// titles case-insensitively.
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Book], error)

	// Find retrieves a book by its manifest id.
	Find(ctx context.Context, id string) (*Book, error)

	// Recommendations returns up to k books most similar to the book with
	// the given id, excluding the book itself.
	Recommendations(ctx context.Context, id string, k int) ([]Recommendation, error)

	// Sync mirrors the catalog into the books table, removing rows whose id
	// is no longer in the catalog.
	Sync(ctx context.Context) (SyncResult, error)

	// Start applies migrations and schedules the initial sync.
	Start(lc *lifecycle.Coordinator) error
}
