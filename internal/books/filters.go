package books

import (
	"net/url"
	"strings"

	"github.com/JaimeStill/book-search/pkg/query"
)

// Filters defines optional criteria for listing books.
type Filters struct {
	Title *string
	IDs   []string
}

// FiltersFromQuery extracts book filters from URL query parameters. The
// page-level search parameter is handled by the list itself.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if title := strings.TrimSpace(values.Get("title")); title != "" {
		f.Title = &title
	}

	for _, raw := range values["id"] {
		for id := range strings.SplitSeq(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.IDs = append(f.IDs, id)
			}
		}
	}

	return f
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereContains("Title", f.Title)

	if len(f.IDs) > 0 {
		ids := make([]any, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = id
		}
		b.WhereIn("ID", ids)
	}

	return b
}

// normalizeSort maps public sort names to projected fields, dropping
// unknown ones.
func normalizeSort(fields []query.SortField) []query.SortField {
	out := make([]query.SortField, 0, len(fields))
	for _, f := range fields {
		if name, ok := sortFields[strings.ToLower(f.Field)]; ok {
			out = append(out, query.SortField{Field: name, Descending: f.Descending})
		}
	}
	return out
}
