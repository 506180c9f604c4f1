package books

import "github.com/JaimeStill/book-search/pkg/query"

var projection = query.NewProjectionMap("public", "books", "b").
	Project("id", "ID").
	Project("position", "Position").
	Project("title", "Title").
	Project("cover", "Cover").
	Project("txt", "Txt").
	Project("synced_at", "SyncedAt")

// defaultSort keeps manifest order.
var defaultSort = query.SortField{Field: "Position"}

// sortFields maps the public sort names onto projected fields.
var sortFields = map[string]string{
	"id":       "ID",
	"position": "Position",
	"title":    "Title",
}
