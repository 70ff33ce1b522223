// syndex doctor: loads the service configuration, connects to every
// configured backend and reports what a deployed synchronizer would see.
// Intended for environment debugging before rolling out the actual service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/indexmill/syndex"
	"github.com/indexmill/syndex/internal/cluster"
	"github.com/indexmill/syndex/internal/config"
	logpkg "github.com/indexmill/syndex/internal/logger"
	"github.com/indexmill/syndex/internal/relational"
	"github.com/indexmill/syndex/internal/version"
)

func main() {
	var (
		indices     = flag.String("indices", "", "comma-separated base index names to resolve")
		showVersion = flag.Bool("version", false, "print version and exit")
		timeout     = flag.Duration("timeout", 5*time.Second, "per-backend check timeout")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("syndex %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		return
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("syndex doctor",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.Int("clusters", len(cfg.Clusters)),
	)

	failed := false
	if !checkClusters(cfg, logger, *timeout) {
		failed = true
	}
	if !checkDatabase(cfg, logger, *timeout) {
		failed = true
	}
	resolveIndices(cfg, logger, *indices)

	if failed {
		os.Exit(1)
	}
	logger.Info("all checks passed")
}

// checkClusters builds the cluster set exactly the way the service would and
// pings each member.
func checkClusters(cfg config.Config, logger *zap.Logger, timeout time.Duration) bool {
	handles := make(map[string]*cluster.Handle, len(cfg.Clusters))
	for name, cc := range cfg.Clusters {
		h, err := cluster.New(name, elasticsearch.Config{
			Addresses:  cc.Addresses,
			Username:   cc.Username,
			Password:   cc.Password,
			APIKey:     cc.APIKey,
			MaxRetries: cc.MaxRetries,
		})
		if err != nil {
			logger.Error("cluster configuration invalid", zap.String("cluster", name), zap.Error(err))
			return false
		}
		handles[name] = h
	}

	set, err := cluster.NewSet(handles)
	if err != nil {
		logger.Error("cluster set invalid", zap.Error(err))
		return false
	}

	ok := true
	for _, h := range set.All() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := h.Ping(ctx)
		cancel()
		if err != nil {
			logger.Error("cluster unreachable", zap.String("cluster", h.Name()), zap.Error(err))
			ok = false
			continue
		}
		logger.Info("cluster reachable", zap.String("cluster", h.Name()))
	}
	return ok
}

func checkDatabase(cfg config.Config, logger *zap.Logger, timeout time.Duration) bool {
	if cfg.Database.DSN == "" {
		logger.Info("no database configured, skipping")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := relational.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Error("database unreachable", zap.Error(err))
		return false
	}
	db.Close()
	logger.Info("database reachable")
	return true
}

// resolveIndices prints the physical index name every requested base resolves
// to, per configured language when translation is enabled. Naming goes
// through Settings.IndexName so the doctor reports exactly what a document
// bound to the same configuration would write to.
func resolveIndices(cfg config.Config, logger *zap.Logger, bases string) {
	if bases == "" {
		return
	}

	naming := syndex.Settings{
		TranslationEnabled: cfg.Translation.Enabled,
		DefaultLanguage:    cfg.Translation.DefaultLanguage,
		IndexPrefix:        cfg.Translation.IndexPrefix,
		IndexSuffix:        cfg.Translation.IndexSuffix,
	}

	languages := []string{""}
	if cfg.Translation.Enabled {
		languages = cfg.Translation.Analysers
	}

	for _, base := range strings.Split(bases, ",") {
		base = strings.TrimSpace(base)
		for _, lang := range languages {
			logger.Info("index resolved",
				zap.String("base", base),
				zap.String("language", orDefault(lang, cfg.Translation.DefaultLanguage)),
				zap.String("index", naming.IndexName(base, lang)),
			)
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
