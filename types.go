// Package syndex synchronizes relational records with search-engine indices:
// it maps model struct fields to search field kinds, serializes instances
// into documents, bulk-applies index/update/delete actions across one or more
// clusters with optional per-language index variants, and materializes search
// results back into relationally ordered rows.
package syndex

import (
	"context"

	"github.com/indexmill/syndex/internal/cluster"
	"github.com/indexmill/syndex/internal/domain"
)

// FieldKind is a search field type.
type FieldKind string

// Search field kinds.
const (
	FieldText    FieldKind = "text"
	FieldKeyword FieldKind = "keyword"
	FieldInteger FieldKind = "integer"
	FieldLong    FieldKind = "long"
	FieldShort   FieldKind = "short"
	FieldDouble  FieldKind = "double"
	FieldBoolean FieldKind = "boolean"
	FieldDate    FieldKind = "date"
	FieldFile    FieldKind = "file"
)

// Op is a bulk operation kind.
type Op = domain.Op

// Bulk operation kinds.
const (
	OpIndex  = domain.OpIndex
	OpUpdate = domain.OpUpdate
	OpDelete = domain.OpDelete
)

// BulkReport is the outcome of a bulk dispatch: the default cluster's merged
// response, plus per-cluster outcomes under the aggregate result policy.
type BulkReport = cluster.BulkReport

// ClusterOutcome is one cluster's result for one bulk dispatch.
type ClusterOutcome = cluster.ClusterOutcome

// Response is the hits envelope of an executed search.
type Response = domain.SearchResponse

// Hit is one matching document of an executed search.
type Hit = domain.Hit

// FieldInfo describes one mapped document field.
type FieldInfo struct {
	Name string
	Kind FieldKind
}

// Source yields model instances for synchronization. Page returns up to
// limit instances starting at offset in a stable total order; limit < 0
// means everything from offset on.
type Source[T any] interface {
	Page(ctx context.Context, offset, limit int) ([]T, error)
}

// sliceSource adapts an in-memory slice to Source.
type sliceSource[T any] []T

func (s sliceSource[T]) Page(_ context.Context, offset, limit int) ([]T, error) {
	if offset >= len(s) {
		return nil, nil
	}
	rest := s[offset:]
	if limit < 0 || limit > len(rest) {
		return rest, nil
	}
	return rest[:limit], nil
}

// Instances wraps model instances as a Source.
func Instances[T any](items ...T) Source[T] {
	return sliceSource[T](items)
}

// TranslateFunc translates one prepared field value for the active language.
// The default translator is the identity function.
type TranslateFunc func(language, field string, value any, failSilently bool) (any, error)

// PrepareFunc resolves one field's value from a model instance.
type PrepareFunc[T any] func(instance T) (any, error)

// PrepareRelatedFunc resolves one field's value from a model instance while
// skipping the given related-instance paths, breaking reference cycles during
// cascading updates.
type PrepareRelatedFunc[T any] func(instance T, ignore []string) (any, error)
