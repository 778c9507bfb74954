// Package location maps a filter state to and from a shareable query string.
package location

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/xraysearch/internal/domain"
	"github.com/kailas-cloud/xraysearch/internal/domain/search/filter"
)

// PageKey is the query key carrying the structured page cursor.
const PageKey = "page"

// aliasSearch is accepted on read for links produced by the full-text page.
const aliasSearch = "q"

// Serialize renders s as a query string without the leading '?'.
// Empty fields are omitted and the page is written only past the first.
func Serialize(s filter.State) string {
	n := s.Normalize()
	var b strings.Builder
	add := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	for _, f := range filter.Fields {
		if v := n.Value(f); v != "" {
			add(string(f), v)
		}
	}
	if n.Page > 1 {
		add(PageKey, strconv.Itoa(n.Page))
	}
	return b.String()
}

// Parse reads a query string, with or without the leading '?'.
// Unknown keys are ignored; for repeated keys the first value wins.
func Parse(query string) (filter.State, error) {
	query = strings.TrimPrefix(strings.TrimSpace(query), "?")
	if query == "" {
		return filter.State{}, nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return filter.State{}, fmt.Errorf("%w: %w", domain.ErrInvalidLocation, err)
	}

	var p filter.Partial
	for _, f := range filter.Fields {
		if v := values.Get(string(f)); v != "" {
			p = p.Set(f, v)
		}
	}
	if values.Get(string(filter.FieldSearch)) == "" {
		if v := values.Get(aliasSearch); v != "" {
			p = p.Set(filter.FieldSearch, v)
		}
	}
	if raw := values.Get(PageKey); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filter.State{}, fmt.Errorf("%w: page %q is not a number", domain.ErrInvalidLocation, raw)
		}
		p = p.WithPage(page)
	}
	return filter.State{}.Merge(p), nil
}
