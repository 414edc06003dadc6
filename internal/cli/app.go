package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ralt/spksearch/internal/cache"
	"github.com/ralt/spksearch/internal/config"
	"github.com/ralt/spksearch/internal/fetch"
	"github.com/ralt/spksearch/internal/query"
	"github.com/ralt/spksearch/internal/search"
	"github.com/ralt/spksearch/internal/utils"
)

// loadConfig reads the file named by the --config flag
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	logrus.Debugf("Loading configuration from %s", path)
	return config.Load(path)
}

// newFetcher builds the HTTP fetcher, wrapped by the cache when enabled.
// refresh drops every cached response first.
func newFetcher(cfg *config.Config, refresh bool) (fetch.Fetcher, error) {
	opts := fetch.DefaultOptions()
	opts.RetryMax = cfg.HTTP.RetryMax
	opts.RetryWaitMin = cfg.HTTP.RetryWaitMin
	opts.RetryWaitMax = cfg.HTTP.RetryWaitMax
	opts.MaxBodyBytes = cfg.HTTP.MaxBodyBytes

	var f fetch.Fetcher = fetch.NewHTTPFetcher(opts)
	if cfg.Cache.TTL <= 0 {
		return f, nil
	}

	if err := utils.EnsureDir(cfg.Paths.Cache); err != nil {
		return nil, err
	}
	logrus.Debugf("Caching responses in %s for %s", cfg.Paths.Cache, cfg.Cache.TTL)
	c := cache.New(f, cfg.Paths.Cache, cfg.Cache.TTL)
	if refresh {
		logrus.Info("Purging cached responses")
		if err := c.Purge(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// newAggregator wires the search pipeline described by cfg
func newAggregator(cfg *config.Config, f fetch.Fetcher) *search.Aggregator {
	engine := query.NewEngine(f,
		query.WithUserAgent(cfg.Defaults.UserAgent),
		query.WithLanguage(cfg.Defaults.Language),
		query.WithTimezone(cfg.Defaults.Timezone),
		query.WithUnique(cfg.Defaults.Unique),
		query.WithHeaders(cfg.Defaults.Headers),
		query.WithTimeout(cfg.Defaults.Timeout),
		query.WithInlineIcons(cfg.Search.InlineIcons, cfg.Search.IconWorkers),
	)
	return search.New(cfg, engine, search.FromConfig(cfg)...)
}
