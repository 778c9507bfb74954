package catalog

import (
	"context"

	"github.com/kailas-cloud/xraysearch/internal/domain/search/request"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/response"
)

// Catalog API paths.
const (
	pathSearch      = "/api/search/"
	pathRecords     = "/api/xrays/"
	pathStats       = "/api/xrays/stats/"
	pathBodyParts   = "/api/xrays/body_parts/"
	pathInstitution = "/api/xrays/institutions/"
	pathDiagnoses   = "/api/xrays/diagnoses/"
	pathSuggestions = "/api/elasticsearch/suggestions/"
	pathRoot        = "/api/"
)

// SearchFullText queries the relevance search endpoint.
func (c *Client) SearchFullText(ctx context.Context, req request.FullText) (response.FullText, error) {
	var out response.FullText
	if err := c.getJSON(ctx, opFullText, pathSearch, req.Params(), &out); err != nil {
		return response.FullText{}, err
	}
	return out, nil
}

// SearchStructured queries the paginated records endpoint.
func (c *Client) SearchStructured(ctx context.Context, req request.Structured) (response.Structured, error) {
	var out response.Structured
	if err := c.getJSON(ctx, opStructured, pathRecords, req.Params(), &out); err != nil {
		return response.Structured{}, err
	}
	return out, nil
}
