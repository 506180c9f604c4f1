package books

import (
	"embed"
	"time"

	"github.com/JaimeStill/book-search/internal/catalog"
	"github.com/JaimeStill/book-search/pkg/database"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations holds the schema for the books table.
var Migrations = database.Migrations{FS: migrationFS, Dir: "migrations"}

// Book is a catalog entry as stored in the database.
type Book struct {
	ID       string    `json:"id"`
	Position int       `json:"position"`
	Title    string    `json:"title"`
	Cover    string    `json:"cover"`
	Txt      string    `json:"txt"`
	SyncedAt time.Time `json:"synced_at"`
}

// Recommendation is a book ranked by similarity to another book or a query.
type Recommendation struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Cover      string  `json:"cover"`
	Similarity float64 `json:"similarity"`
}

// SyncResult counts the rows touched by Sync.
type SyncResult struct {
	Upserted int   `json:"upserted"`
	Removed  int64 `json:"removed"`
}

// RecommendationOf pairs a catalog entry with a similarity score.
func RecommendationOf(b catalog.Book, similarity float64) Recommendation {
	return Recommendation{
		ID:         b.ID,
		Title:      b.Title,
		Cover:      b.Cover,
		Similarity: similarity,
	}
}
