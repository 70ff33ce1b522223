package syndex

import "github.com/indexmill/syndex/internal/domain"

// Sentinel errors, matchable with errors.Is.
var (
	// ErrUnmappedField signals a model field with no search field mapping;
	// raised at document definition time, never during synchronization.
	ErrUnmappedField = domain.ErrUnmappedField
	// ErrInvalidSchema signals an invalid document schema definition.
	ErrInvalidSchema = domain.ErrInvalidSchema
	// ErrNoDefaultCluster signals a cluster set without a "default" entry.
	ErrNoDefaultCluster = domain.ErrNoDefaultCluster
	// ErrNoTable signals a document used as a queryset without a table binding.
	ErrNoTable = domain.ErrNoTable
	// ErrNoDatabase signals a table-bound document on a client constructed
	// without a database connection.
	ErrNoDatabase = domain.ErrNoDatabase
	// ErrNotRegistered signals a sync event for an unregistered model.
	ErrNotRegistered = domain.ErrNotRegistered
)
