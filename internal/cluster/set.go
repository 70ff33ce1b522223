package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/indexmill/syndex/internal/domain"
)

// Set is the named collection of clusters mutating operations replay against.
// Enumeration order is deterministic: non-default clusters sorted by alias,
// the default cluster always last. Read-only after construction.
type Set struct {
	handles []*Handle
}

// NewSet builds a cluster set from named handles. Exactly one handle must be
// aliased "default"; its result is what mutating operations return.
func NewSet(handles map[string]*Handle) (*Set, error) {
	def, ok := handles[DefaultName]
	if !ok {
		return nil, domain.ErrNoDefaultCluster
	}

	names := make([]string, 0, len(handles)-1)
	for name := range handles {
		if name != DefaultName {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	ordered := make([]*Handle, 0, len(handles))
	for _, name := range names {
		ordered = append(ordered, handles[name])
	}
	ordered = append(ordered, def)

	return &Set{handles: ordered}, nil
}

// Default returns the default cluster handle.
func (s *Set) Default() *Handle {
	return s.handles[len(s.handles)-1]
}

// All returns every handle in dispatch order, default last.
func (s *Set) All() []*Handle {
	return s.handles
}

// Get returns the handle with the given alias.
func (s *Set) Get(name string) (*Handle, error) {
	for _, h := range s.handles {
		if h.name == name {
			return h, nil
		}
	}
	return nil, fmt.Errorf("unknown cluster %q", name)
}

// Ping checks availability of every cluster, failing on the first unreachable.
func (s *Set) Ping(ctx context.Context) error {
	for _, h := range s.handles {
		if err := h.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
