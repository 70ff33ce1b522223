// Package cluster manages the set of search clusters that mutating
// operations fan out to, and the bulk/search transport against each.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/indexmill/syndex/internal/domain"
)

// DefaultName is the cluster alias whose result mutating operations return.
const DefaultName = "default"

// Handle is one addressable search cluster.
type Handle struct {
	name string
	es   *elasticsearch.Client
}

// New creates a cluster handle from an Elasticsearch client configuration.
// Transport policy (retries, timeouts) belongs to the client configuration;
// the handle adds none of its own.
func New(name string, cfg elasticsearch.Config) (*Handle, error) {
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("cluster %q: %w", name, err)
	}
	return &Handle{name: name, es: es}, nil
}

// Name returns the cluster alias.
func (h *Handle) Name() string { return h.name }

// Ping checks cluster availability.
func (h *Handle) Ping(ctx context.Context) error {
	res, err := h.es.Ping(h.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping %q: %w", h.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping %q: %s", h.name, res.Status())
	}
	return nil
}

// Bulk sends one NDJSON bulk body and decodes the per-action outcomes.
func (h *Handle) Bulk(ctx context.Context, body []byte, refresh string) (*domain.BulkResponse, error) {
	opts := []func(*esapi.BulkRequest){
		h.es.Bulk.WithContext(ctx),
	}
	if refresh != "" {
		opts = append(opts, h.es.Bulk.WithRefresh(refresh))
	}
	res, err := h.es.Bulk(bytes.NewReader(body), opts...)
	if err != nil {
		return nil, fmt.Errorf("bulk %q: %w", h.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk %q: %s", h.name, res.Status())
	}

	var out domain.BulkResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("bulk %q: decode response: %w", h.name, err)
	}
	return &out, nil
}

// Search executes a query body against one or more indices and returns the
// decoded hits envelope.
func (h *Handle) Search(ctx context.Context, indices []string, body []byte) (*domain.SearchResponse, error) {
	res, err := h.es.Search(
		h.es.Search.WithContext(ctx),
		h.es.Search.WithIndex(indices...),
		h.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", h.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search %q: %s: %s", h.name, res.Status(), msg)
	}

	var out domain.SearchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("search %q: decode response: %w", h.name, err)
	}
	return &out, nil
}

// Count executes a count body against one or more indices.
func (h *Handle) Count(ctx context.Context, indices []string, body []byte) (int, error) {
	opts := []func(*esapi.CountRequest){
		h.es.Count.WithContext(ctx),
		h.es.Count.WithIndex(indices...),
	}
	if len(body) > 0 {
		opts = append(opts, h.es.Count.WithBody(bytes.NewReader(body)))
	}
	res, err := h.es.Count(opts...)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", h.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count %q: %s", h.name, res.Status())
	}

	var out domain.CountResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("count %q: decode response: %w", h.name, err)
	}
	return out.Count, nil
}
