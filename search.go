package syndex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/indexmill/syndex/internal/domain"
	"github.com/indexmill/syndex/internal/relational"
)

// SearchQuery is an immutable, copy-on-modify search specification bound to
// one document (and through it one model type). Builder methods return a
// clone; the receiver is never mutated. A query moves one way from
// unexecuted to executed: the response is memoized and never re-fetched.
type SearchQuery[T any] struct {
	doc     *Document[T]
	using   string
	indices []string
	query   map[string]any
	sorts   []any
	from    *int
	size    *int

	// excludes is the _source filter; materialization uses it to fetch
	// identifiers only.
	excludes []string

	response *domain.SearchResponse
}

// Search returns a query over the document's index, resolved for the active
// language.
func (d *Document[T]) Search() *SearchQuery[T] {
	name, _ := d.IndexName(d.language())
	return &SearchQuery[T]{
		doc:     d,
		using:   "default",
		indices: []string{name},
	}
}

// None returns a query already in the executed state with zero hits and no
// max score. It short-circuits empty-result code paths without a network
// call.
func (d *Document[T]) None() *SearchQuery[T] {
	q := d.Search()
	q.response = domain.EmptySearchResponse()
	return q
}

// clone copies the query. Every clone preserves the document binding and the
// cached response reference; cloning never resets execution state.
func (q *SearchQuery[T]) clone() *SearchQuery[T] {
	c := *q
	c.indices = append([]string(nil), q.indices...)
	c.sorts = append([]any(nil), q.sorts...)
	c.excludes = append([]string(nil), q.excludes...)
	return &c
}

// Using selects the cluster the query executes on (default "default").
func (q *SearchQuery[T]) Using(cluster string) *SearchQuery[T] {
	c := q.clone()
	c.using = cluster
	return c
}

// Index replaces the target indices.
func (q *SearchQuery[T]) Index(indices ...string) *SearchQuery[T] {
	c := q.clone()
	c.indices = indices
	return c
}

// Query sets the query clause of the request body.
func (q *SearchQuery[T]) Query(query map[string]any) *SearchQuery[T] {
	c := q.clone()
	c.query = query
	return c
}

// Sort appends sort clauses.
func (q *SearchQuery[T]) Sort(sorts ...any) *SearchQuery[T] {
	c := q.clone()
	c.sorts = append(c.sorts, sorts...)
	return c
}

// From sets the result offset.
func (q *SearchQuery[T]) From(from int) *SearchQuery[T] {
	c := q.clone()
	c.from = &from
	return c
}

// Size sets the result page size.
func (q *SearchQuery[T]) Size(size int) *SearchQuery[T] {
	c := q.clone()
	c.size = &size
	return c
}

// SourceExcludes excludes source fields from the hits.
func (q *SearchQuery[T]) SourceExcludes(patterns ...string) *SearchQuery[T] {
	c := q.clone()
	c.excludes = append(c.excludes, patterns...)
	return c
}

// ToDict builds the wire request body. Count bodies never carry pagination;
// non-count bodies always carry from and size, defaulted to 0 and the
// configured page size when the caller set neither.
func (q *SearchQuery[T]) ToDict(count bool) map[string]any {
	body := map[string]any{}
	if q.query != nil {
		body["query"] = q.query
	}
	if count {
		return body
	}

	if len(q.sorts) > 0 {
		body["sort"] = q.sorts
	}
	if len(q.excludes) > 0 {
		body["_source"] = map[string]any{"excludes": q.excludes}
	}

	from := 0
	if q.from != nil {
		from = *q.from
	}
	size := q.doc.client.settings.DefaultPageSize
	if q.size != nil {
		size = *q.size
	}
	body["from"] = from
	body["size"] = size
	return body
}

// Execute runs the query once and memoizes the response on the query object.
func (q *SearchQuery[T]) Execute(ctx context.Context) (*Response, error) {
	if q.response != nil {
		return q.response, nil
	}

	body, err := json.Marshal(q.ToDict(false))
	if err != nil {
		return nil, fmt.Errorf("search %q: encode body: %w", q.doc.model, err)
	}

	h, err := q.doc.client.clusters.Get(q.using)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q.doc.model, err)
	}
	resp, err := h.Search(ctx, q.indices, body)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q.doc.model, err)
	}

	q.response = resp
	return resp, nil
}

// Executed reports whether a response is already cached.
func (q *SearchQuery[T]) Executed() bool { return q.response != nil }

// Count executes a count request; the body carries the query clause only.
func (q *SearchQuery[T]) Count(ctx context.Context) (int, error) {
	if q.response != nil {
		return q.response.Hits.Total.Value, nil
	}

	bodyMap := q.ToDict(true)
	var body []byte
	if len(bodyMap) > 0 {
		var err error
		body, err = json.Marshal(bodyMap)
		if err != nil {
			return 0, fmt.Errorf("count %q: encode body: %w", q.doc.model, err)
		}
	}

	h, err := q.doc.client.clusters.Get(q.using)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", q.doc.model, err)
	}
	n, err := h.Count(ctx, q.indices, body)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", q.doc.model, err)
	}
	return n, nil
}

// Queryset is a lazily executed relational query over materialized hits.
type Queryset[T any] struct {
	q *relational.Query[T]
}

// SQL returns the query text and arguments.
func (qs *Queryset[T]) SQL() (string, []any) { return qs.q.SQL() }

// Fetch executes the query and returns the rows.
func (qs *Queryset[T]) Fetch(ctx context.Context) ([]T, error) {
	rows, err := qs.q.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("materialize: %w", err)
	}
	return rows, nil
}

// ToQueryset materializes the search result into a relational query scoped to
// the hit identifiers. An unexecuted query is first re-issued fetching
// identifiers only (every source field excluded) and memoized. With keepOrder
// the rows come back in relevance order through a single CASE position
// expression; one query total, never one per row.
func (q *SearchQuery[T]) ToQueryset(ctx context.Context, keepOrder bool) (*Queryset[T], error) {
	if q.doc.table == nil {
		return nil, fmt.Errorf("to queryset %q: %w", q.doc.model, ErrNoTable)
	}

	s := q
	if q.response == nil {
		// Only the hit metadata with the row ids is needed.
		s = q.SourceExcludes("*")
		if _, err := s.Execute(ctx); err != nil {
			return nil, fmt.Errorf("to queryset %q: %w", q.doc.model, err)
		}
		q.response = s.response
	}

	pks := s.response.IDs()
	return &Queryset[T]{q: q.doc.table.ByPKs(pks, keepOrder)}, nil
}
