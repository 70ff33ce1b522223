package cluster

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/indexmill/syndex/internal/domain"
	"github.com/indexmill/syndex/internal/metrics"
)

// Bulk request chunking defaults, applied when the caller configures neither.
const (
	DefaultChunkSize     = 500
	DefaultMaxChunkBytes = 100 * 1024 * 1024
)

// BulkOptions configures one bulk dispatch.
type BulkOptions struct {
	// ChunkSize closes a chunk after this many actions.
	ChunkSize int
	// MaxChunkBytes closes a chunk once its encoded body reaches this size.
	// Whichever of the two limits is reached first wins.
	MaxChunkBytes int
	// Refresh is passed through to the bulk endpoint ("", "true", "wait_for").
	Refresh string
	// Aggregate collects every cluster's outcome instead of discarding
	// non-default results.
	Aggregate bool
}

func (o BulkOptions) withDefaults() BulkOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxChunkBytes <= 0 {
		o.MaxChunkBytes = DefaultMaxChunkBytes
	}
	return o
}

// ClusterOutcome is one cluster's result for one bulk dispatch.
type ClusterOutcome struct {
	Cluster  string
	Response *domain.BulkResponse
	Err      error
}

// BulkReport is the outcome of a bulk dispatch across the cluster set.
// Default is always the default cluster's merged response; Outcomes is
// populated only under the aggregate result policy.
type BulkReport struct {
	Default  *domain.BulkResponse
	Outcomes []ClusterOutcome
}

// Bulk consumes the action sequence exactly once, chunking it by action count
// and encoded byte size, and replays every chunk against every cluster with
// the default cluster last. The default cluster's responses are merged and
// returned; a default cluster failure aborts the dispatch. Non-default
// failures never block the default dispatch: they are dropped under the
// default-only policy and recorded under the aggregate policy.
func (s *Set) Bulk(ctx context.Context, actions iter.Seq2[domain.Action, error], opts BulkOptions) (*BulkReport, error) {
	opts = opts.withDefaults()

	report := &BulkReport{Default: &domain.BulkResponse{}}
	if opts.Aggregate {
		report.Outcomes = make([]ClusterOutcome, 0, len(s.handles))
	}

	var buf bytes.Buffer
	rows := 0

	flush := func() error {
		if rows == 0 {
			return nil
		}
		if err := s.dispatchChunk(ctx, buf.Bytes(), opts, report); err != nil {
			return err
		}
		metrics.BulkChunksFlushed.Inc()
		buf.Reset()
		rows = 0
		return nil
	}

	for act, err := range actions {
		if err != nil {
			return nil, fmt.Errorf("bulk actions: %w", err)
		}
		if _, err := act.EncodeNDJSON(&buf); err != nil {
			return nil, err
		}
		metrics.ActionsGenerated.WithLabelValues(string(act.Op)).Inc()
		rows++
		if rows >= opts.ChunkSize || buf.Len() >= opts.MaxChunkBytes {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return report, nil
}

// dispatchChunk replays one encoded chunk against every cluster in order.
func (s *Set) dispatchChunk(ctx context.Context, body []byte, opts BulkOptions, report *BulkReport) error {
	def := s.Default()
	for _, h := range s.handles {
		if h == def {
			continue
		}
		resp, err := s.timedBulk(ctx, h, body, opts.Refresh)
		if opts.Aggregate {
			report.Outcomes = append(report.Outcomes, ClusterOutcome{Cluster: h.name, Response: resp, Err: err})
		}
		if err != nil {
			metrics.ClusterErrors.WithLabelValues(h.name).Inc()
		}
	}

	resp, err := s.timedBulk(ctx, def, body, opts.Refresh)
	if err != nil {
		metrics.ClusterErrors.WithLabelValues(def.name).Inc()
		return err
	}
	if opts.Aggregate {
		report.Outcomes = append(report.Outcomes, ClusterOutcome{Cluster: def.name, Response: resp})
	}
	mergeBulkResponse(report.Default, resp)
	return nil
}

func (s *Set) timedBulk(ctx context.Context, h *Handle, body []byte, refresh string) (*domain.BulkResponse, error) {
	start := time.Now()
	resp, err := h.Bulk(ctx, body, refresh)
	metrics.BulkDuration.WithLabelValues(h.name).Observe(time.Since(start).Seconds())
	return resp, err
}

// mergeBulkResponse folds one chunk's response into the running total.
func mergeBulkResponse(into, chunk *domain.BulkResponse) {
	into.Took += chunk.Took
	into.Errors = into.Errors || chunk.Errors
	into.Items = append(into.Items, chunk.Items...)
}
