package syndex

import (
	"context"
	"fmt"
	"sort"

	"github.com/indexmill/syndex/internal/consumer"
)

// Syncer synchronizes one registered model by primary keys. Every Document
// with a table binding satisfies it.
type Syncer interface {
	Model() string
	SyncIDs(ctx context.Context, op Op, ids []string) error
}

// Registry maps model names to their synchronizers. Change events address
// models by name; the registry routes them.
type Registry struct {
	docs map[string]Syncer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]Syncer)}
}

// Register adds a synchronizer under its model name.
func (r *Registry) Register(s Syncer) error {
	name := s.Model()
	if _, dup := r.docs[name]; dup {
		return fmt.Errorf("register %q: already registered", name)
	}
	r.docs[name] = s
	return nil
}

// Get returns the synchronizer for a model name.
func (r *Registry) Get(model string) (Syncer, error) {
	s, ok := r.docs[model]
	if !ok {
		return nil, fmt.Errorf("%q: %w", model, ErrNotRegistered)
	}
	return s, nil
}

// Models returns the registered model names, sorted.
func (r *Registry) Models() []string {
	names := make([]string, 0, len(r.docs))
	for name := range r.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sync routes a synchronization request by model name and action. The admin
// API drives this directly; stream events arrive through HandleEvent.
func (r *Registry) Sync(ctx context.Context, model, action string, ids []string) error {
	return r.HandleEvent(ctx, consumer.Event{Model: model, Action: action, IDs: ids})
}

var _ consumer.Handler = (*Registry)(nil)

// HandleEvent routes one decoded change event to its model's synchronizer.
func (r *Registry) HandleEvent(ctx context.Context, ev consumer.Event) error {
	s, err := r.Get(ev.Model)
	if err != nil {
		return err
	}
	op := Op(ev.Action)
	if !op.Valid() {
		return fmt.Errorf("%q: unknown action %q", ev.Model, ev.Action)
	}
	if err := s.SyncIDs(ctx, op, ev.IDs); err != nil {
		return fmt.Errorf("%q: %w", ev.Model, err)
	}
	return nil
}
