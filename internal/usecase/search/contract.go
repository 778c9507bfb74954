package search

import (
	"context"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
)

// FullTextSearcher queries the relevance search endpoint.
type FullTextSearcher interface {
	SearchFullText(ctx context.Context, req request.FullText) (response.FullText, error)
}

// StructuredSearcher queries the paginated records endpoint.
type StructuredSearcher interface {
	SearchStructured(ctx context.Context, req request.Structured) (response.Structured, error)
}

// LocationWriter persists the shareable location of a session.
type LocationWriter interface {
	Replace(location string)
}

// LocationWriterFunc adapts a function to LocationWriter.
type LocationWriterFunc func(location string)

// Replace calls f(location).
func (f LocationWriterFunc) Replace(location string) { f(location) }
