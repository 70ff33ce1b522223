package syndex

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/indexmill/syndex/internal/cluster"
	"github.com/indexmill/syndex/internal/relational"
)

// Settings is the immutable configuration both the synchronizer and the
// materializer read. It is fixed at client construction; nothing is looked
// up ambiently afterwards.
type Settings struct {
	TranslationEnabled bool
	DefaultLanguage    string
	LanguageAnalysers  []string
	IndexPrefix        string
	IndexSuffix        string

	// QuerysetPagination bounds peak memory during action generation;
	// 0 disables paging.
	QuerysetPagination int

	ChunkSize     int
	MaxChunkBytes int
	Refresh       string

	DefaultPageSize int

	// Aggregate collects every cluster's bulk outcome instead of
	// discarding non-default results.
	Aggregate bool
}

// Client is the syndex entry point: the configured cluster set, the optional
// relational database, and the settings documents read.
type Client struct {
	clusters *cluster.Set
	db       *relational.DB
	settings Settings
	log      *zap.Logger
}

// New creates a client and connects to the configured backends.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		settings: Settings{
			DefaultLanguage: "en",
			ChunkSize:       cluster.DefaultChunkSize,
			MaxChunkBytes:   cluster.DefaultMaxChunkBytes,
			DefaultPageSize: 10,
		},
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.clusters) == 0 {
		return nil, errors.New("syndex: at least one cluster required (use WithCluster)")
	}
	if cfg.settings.TranslationEnabled && len(cfg.settings.LanguageAnalysers) == 0 {
		return nil, errors.New("syndex: translation enabled without language analysers")
	}

	handles := make(map[string]*cluster.Handle, len(cfg.clusters))
	for name, escfg := range cfg.clusters {
		h, err := cluster.New(name, escfg)
		if err != nil {
			return nil, fmt.Errorf("syndex: %w", err)
		}
		handles[name] = h
	}
	set, err := cluster.NewSet(handles)
	if err != nil {
		return nil, fmt.Errorf("syndex: %w", err)
	}

	c := &Client{
		clusters: set,
		settings: cfg.settings,
		log:      cfg.logger,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	if cfg.dsn != "" {
		db, err := relational.Connect(context.Background(), cfg.dsn)
		if err != nil {
			return nil, fmt.Errorf("syndex: %w", err)
		}
		c.db = db
	}

	return c, nil
}

// Settings returns the client settings.
func (c *Client) Settings() Settings { return c.settings }

// Ping checks every cluster and, when bound, the relational database.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.clusters.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if c.db != nil {
		if err := c.db.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
	}
	return nil
}

// Close releases the relational pool. Cluster handles hold no resources of
// their own beyond the HTTP transport.
func (c *Client) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

// clientConfig accumulates options.
type clientConfig struct {
	clusters map[string]elasticsearch.Config
	dsn      string
	settings Settings
	logger   *zap.Logger
}

// Option configures client construction.
type Option func(*clientConfig)

// WithCluster adds a cluster by alias and node addresses. Exactly one
// cluster must be aliased "default".
func WithCluster(name string, addresses ...string) Option {
	return func(c *clientConfig) {
		if c.clusters == nil {
			c.clusters = make(map[string]elasticsearch.Config)
		}
		c.clusters[name] = elasticsearch.Config{Addresses: addresses}
	}
}

// WithClusterConfig adds a cluster with full client configuration
// (authentication, retries, custom transport).
func WithClusterConfig(name string, cfg elasticsearch.Config) Option {
	return func(c *clientConfig) {
		if c.clusters == nil {
			c.clusters = make(map[string]elasticsearch.Config)
		}
		c.clusters[name] = cfg
	}
}

// WithPostgres binds the relational database documents page from and
// materialize into.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) { c.dsn = dsn }
}

// WithTranslation enables per-language index variants: each object fans out
// to one action per analyser, and index names carry the language tag.
func WithTranslation(defaultLanguage string, analysers ...string) Option {
	return func(c *clientConfig) {
		c.settings.TranslationEnabled = true
		if defaultLanguage != "" {
			c.settings.DefaultLanguage = defaultLanguage
		}
		c.settings.LanguageAnalysers = analysers
	}
}

// WithIndexAffixes sets the environment prefix and suffix of index names.
func WithIndexAffixes(prefix, suffix string) Option {
	return func(c *clientConfig) {
		c.settings.IndexPrefix = prefix
		c.settings.IndexSuffix = suffix
	}
}

// WithQuerysetPagination splits action generation into fixed-size pages.
func WithQuerysetPagination(pageSize int) Option {
	return func(c *clientConfig) { c.settings.QuerysetPagination = pageSize }
}

// WithChunking sets the bulk chunk limits: actions per request and encoded
// bytes per request, whichever is reached first.
func WithChunking(rows, maxBytes int) Option {
	return func(c *clientConfig) {
		if rows > 0 {
			c.settings.ChunkSize = rows
		}
		if maxBytes > 0 {
			c.settings.MaxChunkBytes = maxBytes
		}
	}
}

// WithBulkRefresh sets the default refresh behavior of bulk requests.
func WithBulkRefresh(refresh string) Option {
	return func(c *clientConfig) { c.settings.Refresh = refresh }
}

// WithDefaultPageSize sets the size applied to search bodies whose caller
// set none.
func WithDefaultPageSize(size int) Option {
	return func(c *clientConfig) { c.settings.DefaultPageSize = size }
}

// WithAggregateResults switches the result policy from default-only to
// aggregate: every cluster's bulk outcome is collected in the report.
func WithAggregateResults() Option {
	return func(c *clientConfig) { c.settings.Aggregate = true }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = log }
}
