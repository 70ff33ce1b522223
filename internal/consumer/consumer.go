// Package consumer reads model-change events from a Redis stream and drives
// the registered synchronizers. Failed events are logged and counted; the
// stream position always advances, so a poisoned event never wedges the loop.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/indexmill/syndex/internal/metrics"
)

// Event is one model-change notification.
type Event struct {
	Model  string
	Action string // index, update, delete
	IDs    []string
}

// Handler applies one decoded change event.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// Config holds stream consumption settings.
type Config struct {
	Stream  string
	BlockMs int
	Count   int
}

// Consumer tails one stream and dispatches events to a handler.
type Consumer struct {
	client  rueidis.Client
	cfg     Config
	handler Handler
	log     *zap.Logger
	lastID  string
}

// New creates a consumer starting from new entries only.
func New(client rueidis.Client, cfg Config, handler Handler, log *zap.Logger) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		log:     log,
		lastID:  "$",
	}
}

// Run consumes the stream until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.readOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.log.Warn("stream read failed", zap.Error(err))
		}
	}
}

func (c *Consumer) readOnce(ctx context.Context) error {
	cmd := c.client.B().Xread().
		Count(int64(c.cfg.Count)).
		Block(int64(c.cfg.BlockMs)).
		Streams().Key(c.cfg.Stream).Id(c.lastID).
		Build()

	resp := c.client.Do(ctx, cmd)
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			// Block timeout with no new entries.
			return nil
		}
		return fmt.Errorf("xread %s: %w", c.cfg.Stream, err)
	}

	streams, err := resp.AsXRead()
	if err != nil {
		return fmt.Errorf("xread %s: decode: %w", c.cfg.Stream, err)
	}

	for _, entry := range streams[c.cfg.Stream] {
		c.lastID = entry.ID
		c.dispatch(ctx, entry)
	}
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, entry rueidis.XRangeEntry) {
	ev, err := decodeEvent(entry.FieldValues)
	if err != nil {
		c.log.Warn("malformed change event",
			zap.String("entry", entry.ID), zap.Error(err))
		metrics.EventsConsumed.WithLabelValues("unknown", "malformed").Inc()
		return
	}

	if err := c.handler.HandleEvent(ctx, ev); err != nil {
		c.log.Error("change event failed",
			zap.String("entry", entry.ID),
			zap.String("model", ev.Model),
			zap.String("action", ev.Action),
			zap.Int("ids", len(ev.IDs)),
			zap.Error(err))
		metrics.EventsConsumed.WithLabelValues(ev.Model, "error").Inc()
		return
	}

	metrics.EventsConsumed.WithLabelValues(ev.Model, "ok").Inc()
}

// decodeEvent parses stream entry fields: model, action, ids (comma-separated).
func decodeEvent(fields map[string]string) (Event, error) {
	model := fields["model"]
	if model == "" {
		return Event{}, fmt.Errorf("missing model field")
	}
	action := fields["action"]
	switch action {
	case "index", "update", "delete":
		// ok
	default:
		return Event{}, fmt.Errorf("unknown action %q", action)
	}

	raw := fields["ids"]
	if raw == "" {
		return Event{}, fmt.Errorf("missing ids field")
	}
	ids := strings.Split(raw, ",")
	for i, id := range ids {
		ids[i] = strings.TrimSpace(id)
		if ids[i] == "" {
			return Event{}, fmt.Errorf("empty id at position %d", i)
		}
	}

	return Event{Model: model, Action: action, IDs: ids}, nil
}
