package syndex

import (
	"fmt"

	"github.com/indexmill/syndex/internal/relational"
)

// fieldHooks is the per-field callback pair consulted during preparation,
// in priority order: related-aware hook, then simple hook, then the generic
// attribute extractor.
type fieldHooks[T any] struct {
	related PrepareRelatedFunc[T]
	simple  PrepareFunc[T]
}

// Document is a typed mapping between one model type and one search index.
// Schema is inferred from T's struct tags at construction time.
type Document[T any] struct {
	client *Client
	model  string
	index  string
	meta   *schemaMeta
	hooks  map[string]fieldHooks[T]
	xlate  TranslateFunc
	table  *relational.Table[T]

	// activeLang is the scoped language override during action preparation.
	// Empty means the configured default. Confined to one synchronization
	// call stack; Document is not for concurrent mutation.
	activeLang string
}

// DocumentOption configures document construction.
type DocumentOption func(*documentConfig)

type documentConfig struct {
	table string
}

// WithTable binds the document to a relational table, enabling queryset
// sources and search-result materialization. The primary key column is the
// id field's document name.
func WithTable(name string) DocumentOption {
	return func(c *documentConfig) {
		c.table = name
	}
}

// NewDocument creates a document mapping for the given model name and base
// index name. T must be a struct with syndex tags; the schema is parsed once
// and an unmappable field fails here, not during synchronization.
func NewDocument[T any](client *Client, model, index string, opts ...DocumentOption) (*Document[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("document %q: %w", model, err)
	}

	var cfg documentConfig
	for _, o := range opts {
		o(&cfg)
	}

	d := &Document[T]{
		client: client,
		model:  model,
		index:  index,
		meta:   meta,
		hooks:  make(map[string]fieldHooks[T]),
	}

	if cfg.table != "" {
		if client.db == nil {
			return nil, fmt.Errorf("document %q: table %q: %w", model, cfg.table, ErrNoDatabase)
		}
		tbl, err := relational.NewTable[T](client.db, cfg.table, meta.idName)
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", model, err)
		}
		d.table = tbl
	}

	return d, nil
}

// Model returns the registry name of the document.
func (d *Document[T]) Model() string { return d.model }

// Fields returns the declared mapped fields.
func (d *Document[T]) Fields() []FieldInfo { return d.meta.fieldInfos() }

// PK returns the primary key of an instance as a document identifier.
func (d *Document[T]) PK(instance T) string { return d.meta.pk(instance) }

// Queryset returns the bound table as a synchronization source.
func (d *Document[T]) Queryset() (Source[T], error) {
	if d.table == nil {
		return nil, fmt.Errorf("document %q: %w", d.model, ErrNoTable)
	}
	return d.table, nil
}

// PrepareField registers a simple preparation hook for one field. The hook
// replaces the generic attribute extractor for that field.
func (d *Document[T]) PrepareField(field string, fn PrepareFunc[T]) error {
	if err := d.checkField(field); err != nil {
		return err
	}
	h := d.hooks[field]
	h.simple = fn
	d.hooks[field] = h
	return nil
}

// PrepareFieldWithRelated registers a related-aware preparation hook for one
// field; it takes priority over the simple hook and receives the set of
// related-instance paths to exclude.
func (d *Document[T]) PrepareFieldWithRelated(field string, fn PrepareRelatedFunc[T]) error {
	if err := d.checkField(field); err != nil {
		return err
	}
	h := d.hooks[field]
	h.related = fn
	d.hooks[field] = h
	return nil
}

// TranslateWith sets the translation hook applied to every prepared value
// when translation is enabled. The default is identity.
func (d *Document[T]) TranslateWith(fn TranslateFunc) {
	d.xlate = fn
}

func (d *Document[T]) checkField(field string) error {
	for _, f := range d.meta.fields {
		if f.name == field {
			return nil
		}
	}
	return fmt.Errorf("document %q: no mapped field %q", d.model, field)
}

// Prepare turns a model instance into the document source map, resolving each
// declared field through its hook chain. ignore lists related-instance paths
// to skip (cycle breaking during cascading updates). failSilently is the
// call-level flag handed to the translation hook; fields tagged failsilent
// additionally swallow their own preparation errors.
func (d *Document[T]) Prepare(instance T, ignore []string, failSilently bool) (map[string]any, error) {
	data := make(map[string]any, len(d.meta.fields))

	for i := range d.meta.fields {
		fm := &d.meta.fields[i]
		value, err := d.prepareOne(fm, instance, ignore)
		if err == nil && d.client.settings.TranslationEnabled {
			value, err = d.translateField(fm.name, value, failSilently)
		}
		if err != nil {
			if fm.failSilently {
				value = nil
			} else {
				return nil, fmt.Errorf("prepare %s.%s: %w", d.model, fm.name, err)
			}
		}
		data[fm.name] = value
	}

	return data, nil
}

func (d *Document[T]) prepareOne(fm *fieldMeta, instance T, ignore []string) (any, error) {
	h := d.hooks[fm.name]
	switch {
	case h.related != nil:
		return h.related(instance, ignore)
	case h.simple != nil:
		return h.simple(instance)
	default:
		return fm.extract(instance, ignore), nil
	}
}

func (d *Document[T]) translateField(field string, value any, failSilently bool) (any, error) {
	if d.xlate == nil {
		return value, nil
	}
	return d.xlate(d.language(), field, value, failSilently)
}

// language returns the active language: the scoped override when set,
// otherwise the configured default.
func (d *Document[T]) language() string {
	if d.activeLang != "" {
		return d.activeLang
	}
	return d.client.settings.DefaultLanguage
}

// withLanguage runs fn with the language scope overridden, restoring the
// previous scope unconditionally, panics included.
func (d *Document[T]) withLanguage(language string, fn func() error) error {
	prev := d.activeLang
	d.activeLang = language
	defer func() { d.activeLang = prev }()
	return fn()
}
