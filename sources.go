package main

import (
	"fmt"

	"perfdash/api/alpaca"
	av "perfdash/api/alpha_vantage"
	"perfdash/api/yahoo"
	"perfdash/config"
	c "perfdash/core"
	r "perfdash/data/repos"
)

// newSource picks the price source named by the configuration
func newSource(cfg config.Config) (c.PriceSource, error) {
	switch cfg.Source {
	case config.SourceCSV:
		return r.NewPriceFile(cfg.CsvPath), nil
	case config.SourceAlphaVantage:
		return av.GetClient(cfg.AlphaVantageApiKey, cfg.RequestTimeout), nil
	case config.SourceYahoo:
		return yahoo.GetClient(cfg.RequestTimeout), nil
	case config.SourceAlpaca:
		return alpaca.GetClient(cfg.AlpacaApiKey, cfg.AlpacaSecretKey), nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, cfg.Source)
	}
}

// newLoader wraps the configured source in a cache unless cache_ttl is zero
func newLoader(cfg config.Config) (c.Loader, error) {
	source, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	var loader c.Loader = c.NewPriceLoader(source)
	if cfg.CacheTTL > 0 {
		loader = c.NewCachedLoader(loader, cfg.CacheTTL)
	}
	return loader, nil
}
