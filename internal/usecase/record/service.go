package record

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	domrec "github.com/kailas-cloud/xraysearch/internal/domain/record"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/result"
	"github.com/kailas-cloud/xraysearch/internal/logger"
)

// Service handles record lookups, submissions and the catalog metadata
// used to build filter controls.
type Service struct {
	catalog     Catalog
	options     OptionsSource
	invalidator Invalidator
}

// New creates a record service. options defaults to the catalog itself when
// nil; invalidator may be nil when no cache is configured.
func New(catalog Catalog, options OptionsSource, invalidator Invalidator) *Service {
	if options == nil {
		if src, ok := catalog.(OptionsSource); ok {
			options = src
		}
	}
	return &Service{catalog: catalog, options: options, invalidator: invalidator}
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, id string) (result.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return result.Item{}, fmt.Errorf("empty record id: %w", domain.ErrNotFound)
	}
	item, err := s.catalog.Get(ctx, id)
	if err != nil {
		return result.Item{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return item, nil
}

// Submit validates and uploads a new record. A successful submission changes
// result pages and may add new dropdown values, so the cache is dropped.
func (s *Service) Submit(ctx context.Context, d domrec.Draft) (result.Item, error) {
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return result.Item{}, err
	}
	item, err := s.catalog.Create(ctx, d)
	if err != nil {
		return result.Item{}, fmt.Errorf("create record: %w", err)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	logger.FromContext(ctx).Info("Record submitted",
		zap.String("id", item.ID), zap.String("body_part", item.BodyPart))
	return item, nil
}

// Options returns the body part, institution and diagnosis lists.
func (s *Service) Options(ctx context.Context) (domrec.Options, error) {
	if s.options == nil {
		return domrec.Options{}, fmt.Errorf("options: %w", domain.ErrUnroutable)
	}
	opts, err := s.options.Options(ctx)
	if err != nil {
		return domrec.Options{}, fmt.Errorf("options: %w", err)
	}
	return opts, nil
}

// Suggestions completes text for field. Unknown fields yield an empty list.
func (s *Service) Suggestions(ctx context.Context, field, text string) []string {
	if !domrec.IsSuggestionField(field) {
		return []string{}
	}
	return s.catalog.Suggestions(ctx, field, text)
}

// Stats returns catalog statistics.
func (s *Service) Stats(ctx context.Context) (domrec.Stats, error) {
	st, err := s.catalog.Stats(ctx)
	if err != nil {
		return domrec.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
