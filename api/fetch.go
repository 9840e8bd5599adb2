package api

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	dm "perfdash/data/models"
)

// DefaultFetchLimit caps concurrent per symbol requests against one provider
const DefaultFetchLimit = 4

type SymbolFetcher func(ctx context.Context, symbol string) (dm.SymbolSeries, error)

// FetchEach runs fetch for every symbol with at most limit requests in flight.
// A failing symbol is logged and returned as an empty series, only a cancelled context fails the whole call.
// Results keep the order of symbols.
func FetchEach(ctx context.Context, provider string, symbols []string, limit int, fetch SymbolFetcher) ([]dm.SymbolSeries, error) {
	res := make([]dm.SymbolSeries, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			series, err := fetch(gctx, symbol)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("%s: no data for %s: %v", provider, symbol, err)
				res[i] = dm.SymbolSeries{Symbol: symbol}
				return nil
			}

			series.Symbol = symbol
			res[i] = series
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return res, nil
}
