package search

import "github.com/JaimeStill/book-search/pkg/openapi"

type spec struct {
	Image    *openapi.Operation
	Document *openapi.Operation
}

// Spec provides OpenAPI specifications for all search endpoints.
var Spec = spec{
	Image: &openapi.Operation{
		Summary:     "Search by cover image",
		Description: "Upload an image and find the books whose covers are nearest in the cover eigenspace",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("top_k", "integer", "Number of results (default 5)", false),
		},
		RequestBody: openapi.RequestBodyMultipart("image", "JPEG, PNG, GIF or WebP image", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Matching books", "SearchResults"),
			400: openapi.ResponseRef("BadRequest"),
			413: openapi.ResponseRef("TooLarge"),
			415: {Description: "Upload is not a supported image"},
			429: openapi.ResponseRef("TooManyRequests"),
			503: openapi.ResponseRef("Unavailable"),
		},
	},
	Document: &openapi.Operation{
		Summary:     "Search by text",
		Description: "Find books whose text is most similar to a query string or an uploaded text file (multipart field \"document\")",
		RequestBody: openapi.RequestBodyJSON("DocumentRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Matching books", "SearchResults"),
			400: openapi.ResponseRef("BadRequest"),
			413: openapi.ResponseRef("TooLarge"),
			415: {Description: "Upload is not plain text"},
			429: openapi.ResponseRef("TooManyRequests"),
			503: openapi.ResponseRef("Unavailable"),
		},
	},
}

// Schemas returns OpenAPI schemas for search types.
func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"DocumentRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"query": {Type: "string", Description: "Free text to search for"},
				"top_k": {Type: "integer", Description: "Number of results", Default: 5},
			},
			Required: []string{"query"},
		},
		"SearchResults": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"results": {Type: "array", Items: openapi.SchemaRef("Recommendation")},
			},
		},
	}
}
