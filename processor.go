package syndex

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/indexmill/syndex/internal/consumer"
)

// StreamSettings configures the change-event stream the processor tails.
type StreamSettings struct {
	Addrs    []string
	Password string
	Stream   string // default "syndex:changes"
	BlockMs  int    // default 5000
	Count    int    // default 100
}

// Processor is the real-time signal half of synchronization: it consumes
// model-change events from a Redis stream and drives the registered
// documents. Index/update events refetch rows from the relational side;
// delete events go straight to the clusters.
type Processor struct {
	rc       rueidis.Client
	consumer *consumer.Consumer
}

// NewProcessor connects to the stream backend and binds the registry.
func NewProcessor(c *Client, reg *Registry, s StreamSettings) (*Processor, error) {
	if len(s.Addrs) == 0 {
		return nil, fmt.Errorf("processor: stream addresses required")
	}
	if s.Stream == "" {
		s.Stream = "syndex:changes"
	}
	if s.BlockMs <= 0 {
		s.BlockMs = 5000
	}
	if s.Count <= 0 {
		s.Count = 100
	}

	rc, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: s.Addrs,
		Password:    s.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("processor: %w", err)
	}

	return &Processor{
		rc: rc,
		consumer: consumer.New(rc, consumer.Config{
			Stream:  s.Stream,
			BlockMs: s.BlockMs,
			Count:   s.Count,
		}, reg, c.log),
	}, nil
}

// Run consumes events until the context is canceled.
func (p *Processor) Run(ctx context.Context) error {
	if err := p.consumer.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("processor: %w", err)
	}
	return nil
}

// Close releases the stream connection.
func (p *Processor) Close() {
	if p.rc != nil {
		p.rc.Close()
	}
}
