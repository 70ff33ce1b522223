package syndex

import (
	"context"
	"fmt"
	"iter"

	"github.com/indexmill/syndex/internal/cluster"
	"github.com/indexmill/syndex/internal/domain"
)

// IndexName computes the per-environment index name for the document's base
// index and the given language ("" means the configured default). The second
// return reports whether the custom naming path is fully active: it requires
// translation enabled and both prefix and suffix configured; otherwise the
// name refers to the platform default index.
func (d *Document[T]) IndexName(language string) (string, bool) {
	return d.client.CustomIndexName(d.index, language)
}

// CustomIndexName is the single-name variant of CustomIndexNames: same
// formatting, no iteration.
func (c *Client) CustomIndexName(base, language string) (string, bool) {
	return c.settings.IndexName(base, language), c.customNaming()
}

// CustomIndexNames computes one name per base, preserving order. The name is
// {prefix}-{base}{-language if translation enabled}{-suffix}, omitting absent
// segments and their separators; language falls back to the configured
// default when unset.
func (c *Client) CustomIndexNames(bases []string, language string) ([]string, bool) {
	names := make([]string, len(bases))
	for i, base := range bases {
		names[i] = c.settings.IndexName(base, language)
	}
	return names, c.customNaming()
}

// IndexName formats the physical index name for one base and language under
// these settings. The single source of the affix/language layout, shared by
// documents and tooling alike.
func (s Settings) IndexName(base, language string) string {
	if language == "" {
		language = s.DefaultLanguage
	}
	name := base
	if s.IndexPrefix != "" {
		name = s.IndexPrefix + "-" + name
	}
	if s.TranslationEnabled {
		name = name + "-" + language
	}
	if s.IndexSuffix != "" {
		name = name + "-" + s.IndexSuffix
	}
	return name
}

// customNaming reports whether the custom naming path is fully active.
func (c *Client) customNaming() bool {
	s := c.settings
	return s.TranslationEnabled && s.IndexPrefix != "" && s.IndexSuffix != ""
}

// SyncOption configures one synchronization call.
type SyncOption func(*syncConfig)

type syncConfig struct {
	failSilently bool
	refresh      string
}

// FailLoud makes field preparation errors abort the batch instead of being
// handed to the translation hook as recoverable.
func FailLoud() SyncOption {
	return func(c *syncConfig) { c.failSilently = false }
}

// WithRefresh overrides the configured bulk refresh behavior for one call
// ("true", "wait_for" or "").
func WithRefresh(refresh string) SyncOption {
	return func(c *syncConfig) { c.refresh = refresh }
}

// Update indexes every instance of the source on all configured clusters.
func (d *Document[T]) Update(ctx context.Context, src Source[T], opts ...SyncOption) (*BulkReport, error) {
	return d.Sync(ctx, OpIndex, src, opts...)
}

// Delete removes every instance of the source from all configured clusters.
func (d *Document[T]) Delete(ctx context.Context, src Source[T], opts ...SyncOption) (*BulkReport, error) {
	return d.Sync(ctx, OpDelete, src, opts...)
}

// Sync generates one bulk action per instance (per language analyser when
// translation is enabled) and dispatches them to every configured cluster,
// default last. The returned report carries the default cluster's response;
// non-default outcomes are included only under the aggregate result policy.
func (d *Document[T]) Sync(ctx context.Context, op Op, src Source[T], opts ...SyncOption) (*BulkReport, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("sync %q: unknown op %q", d.model, op)
	}
	cfg := syncConfig{failSilently: true, refresh: d.client.settings.Refresh}
	for _, o := range opts {
		o(&cfg)
	}

	report, err := d.client.clusters.Bulk(ctx, d.actions(ctx, src, op, cfg.failSilently), d.bulkOptions(cfg.refresh))
	if err != nil {
		return nil, fmt.Errorf("sync %q: %w", d.model, err)
	}
	return report, nil
}

func (d *Document[T]) bulkOptions(refresh string) cluster.BulkOptions {
	return cluster.BulkOptions{
		ChunkSize:     d.client.settings.ChunkSize,
		MaxChunkBytes: d.client.settings.MaxChunkBytes,
		Refresh:       refresh,
		Aggregate:     d.client.settings.Aggregate,
	}
}

// SyncIDs synchronizes by primary keys alone: deletes need no row data, other
// operations refetch the rows from the bound table first. This is the entry
// point the change-event processor drives.
func (d *Document[T]) SyncIDs(ctx context.Context, op Op, ids []string) error {
	if op == OpDelete {
		_, err := d.client.clusters.Bulk(ctx, d.idActions(ids, op), d.bulkOptions(d.client.settings.Refresh))
		if err != nil {
			return fmt.Errorf("sync ids %q: %w", d.model, err)
		}
		return nil
	}

	if d.table == nil {
		return fmt.Errorf("sync ids %q: %w", d.model, ErrNoTable)
	}
	rows, err := d.table.ByPKs(ids, false).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("sync ids %q: %w", d.model, err)
	}
	if _, err := d.Sync(ctx, op, Instances(rows...)); err != nil {
		return err
	}
	return nil
}

// actions lazily turns the source into bulk actions. The sequence is
// single-consumption: the bulk chunker materializes it chunk by chunk, so a
// paginated source never sits fully in memory. Pagination and language
// fan-out compose: pages are fetched in order, and each instance yields one
// action per language analyser when translation is enabled.
func (d *Document[T]) actions(ctx context.Context, src Source[T], op Op, failSilently bool) iter.Seq2[domain.Action, error] {
	return func(yield func(domain.Action, error) bool) {
		pageSize := d.client.settings.QuerysetPagination
		if pageSize <= 0 {
			pageSize = -1
		}

		offset := 0
		for {
			page, err := src.Page(ctx, offset, pageSize)
			if err != nil {
				yield(domain.Action{}, fmt.Errorf("page at %d: %w", offset, err))
				return
			}
			for _, instance := range page {
				for _, language := range d.fanout() {
					act, err := d.prepareAction(instance, op, language, failSilently)
					if !yield(act, err) || err != nil {
						return
					}
				}
			}
			if pageSize < 0 || len(page) < pageSize {
				return
			}
			offset += pageSize
		}
	}
}

// idActions yields delete actions for bare identifiers, with the same
// language fan-out as instance actions.
func (d *Document[T]) idActions(ids []string, op Op) iter.Seq2[domain.Action, error] {
	return func(yield func(domain.Action, error) bool) {
		for _, id := range ids {
			for _, language := range d.fanout() {
				name, _ := d.client.CustomIndexName(d.index, language)
				if !yield(domain.Action{Op: op, Index: name, ID: id}, nil) {
					return
				}
			}
		}
	}
}

// fanout returns the language variants one instance expands to: every
// configured analyser under translation, a single default pass otherwise.
func (d *Document[T]) fanout() []string {
	if d.client.settings.TranslationEnabled {
		return d.client.settings.LanguageAnalysers
	}
	return []string{""}
}

// prepareAction builds one bulk action under a scoped language override:
// the language is activated for the duration of document preparation and
// restored unconditionally, so no translation state leaks into later
// operations even when preparation fails.
func (d *Document[T]) prepareAction(instance T, op Op, language string, failSilently bool) (domain.Action, error) {
	var act domain.Action
	err := d.withLanguage(language, func() error {
		name, _ := d.client.CustomIndexName(d.index, d.language())
		act = domain.Action{Op: op, Index: name, ID: d.meta.pk(instance)}
		if op != domain.OpDelete {
			source, err := d.Prepare(instance, nil, failSilently)
			if err != nil {
				return err
			}
			act.Source = source
		}
		return nil
	})
	return act, err
}
