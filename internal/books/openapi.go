package books

import "github.com/JaimeStill/book-search/pkg/openapi"

type spec struct {
	List            *openapi.Operation
	Find            *openapi.Operation
	Recommendations *openapi.Operation
}

// Spec provides OpenAPI specifications for all book endpoints.
var Spec = spec{
	List: &openapi.Operation{
		Summary:     "List books",
		Description: "List catalog books in manifest order with optional title search and pagination",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Items per page", false),
			openapi.QueryParam("per_page", "integer", "Alias for page_size", false),
			openapi.QueryParam("search", "string", "Case-insensitive title search", false),
			openapi.QueryParam("title", "string", "Filter by title substring", false),
			openapi.QueryParam("id", "string", "Comma-separated book ids", false),
			openapi.QueryParam("sort", "string", "Sort fields (id, position, title); prefix with - for descending", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Book list", "BookPageResult"),
		},
	},
	Find: &openapi.Operation{
		Summary:     "Find book",
		Description: "Find a book by its manifest id",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Book ID"),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Book", "Book"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Recommendations: &openapi.Operation{
		Summary:     "Recommend similar books",
		Description: "Books whose text is most similar to the given book, excluding the book itself",
		Parameters: []*openapi.Parameter{
			openapi.PathParam("id", "Book ID"),
			openapi.QueryParam("top_k", "integer", "Number of recommendations (default 5)", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Recommendations", "RecommendationList"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			503: openapi.ResponseRef("Unavailable"),
		},
	},
}

// Schemas returns OpenAPI schemas for book-related types.
func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Book": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":        {Type: "string"},
				"position":  {Type: "integer", Description: "Manifest order (0-indexed)"},
				"title":     {Type: "string"},
				"cover":     {Type: "string", Description: "Cover path relative to /data"},
				"txt":       {Type: "string", Description: "Text path relative to /data"},
				"synced_at": {Type: "string", Format: "date-time"},
			},
		},
		"BookPageResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Book")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"Recommendation": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string"},
				"title":      {Type: "string"},
				"cover":      {Type: "string"},
				"similarity": {Type: "number", Format: "double"},
			},
		},
		"RecommendationList": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"recommendations": {Type: "array", Items: openapi.SchemaRef("Recommendation")},
			},
		},
	}
}
