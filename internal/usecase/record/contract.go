package record

import (
	"context"

	domrec "github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
)

// Catalog is the record side of the catalog API.
type Catalog interface {
	Get(ctx context.Context, id string) (result.Item, error)
	Create(ctx context.Context, d domrec.Draft) (result.Item, error)
	Suggestions(ctx context.Context, field, text string) []string
	Stats(ctx context.Context) (domrec.Stats, error)
}

// OptionsSource provides the filter dropdown lists, possibly cached.
type OptionsSource interface {
	Options(ctx context.Context) (domrec.Options, error)
}

// Invalidator drops cached catalog responses (dropdown lists and result pages).
type Invalidator interface {
	Invalidate(ctx context.Context)
}
