package app

import (
	"context"
	"time"

	"github.com/ecbconv/ecbconv/config"
	"github.com/ecbconv/ecbconv/fx"
	"github.com/ecbconv/ecbconv/fx/sqlcache"
	"github.com/ecbconv/ecbconv/log"
	"github.com/ecbconv/ecbconv/metrics"
)

type Options struct {
	ForceDownload bool
	// Keep rates in memory only: always fetch, never persist.
	NoCache    bool
	Getenv     config.Getenv
	ErrPrinter log.ErrorPrinter
	Metrics    *metrics.Metrics
}

// NewRateCache builds the cache selected by cfg. The returned func releases
// it.
func NewRateCache(cfg *config.Config, opts Options) (fx.RatesCache, func(), error) {
	noop := func() {}
	if opts.NoCache {
		return fx.NewMemRatesCache(), noop, nil
	}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		cache, err := sqlcache.Open(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.EnsureSchema(ctx); err != nil {
			// Loading will miss and saving will report the problem.
			log.Component("app").Warnf("Postgres rate cache unavailable: %v", err)
		}
		return cache, func() { cache.Close() }, nil
	default:
		dir, err := cfg.ResolveDataDir(opts.Getenv)
		if err != nil {
			return nil, noop, &fx.StorageError{Op: "resolve", Err: err}
		}
		log.Tracef("app", "rate cache directory %s", dir)
		return fx.NewFileRatesCache(dir), noop, nil
	}
}

// NewRateManager wires the cache, the feed loader and metrics for one run.
func NewRateManager(cfg *config.Config, opts Options) (*fx.RateManager, func(), error) {
	cache, release, err := NewRateCache(cfg, opts)
	if err != nil {
		return nil, release, err
	}
	remote := fx.NewECBRemoteLoader(cfg.Feed.URL, cfg.Feed.Timeout)
	remote.UserAgent = "ecbconv/" + AppVersion

	mgr := fx.NewRateManager(cache, remote, opts.ForceDownload, opts.ErrPrinter)
	mgr.Metrics = opts.Metrics
	return mgr, release, nil
}
