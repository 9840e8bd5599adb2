package repos

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Watchlist is a saved ticker selection, read from yaml
type Watchlist struct {
	Name    string   `yaml:"name"`
	Tickers []string `yaml:"tickers"`
	Start   string   `yaml:"start"`
	End     string   `yaml:"end"`
}

// LoadWatchlist reads a watchlist file. Two shapes are accepted:
//
//	name: cac
//	tickers: [MC.PA, BNP.PA]
//
// or a bare list of tickers.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading watchlist %s: %w", path, err)
	}
	return ParseWatchlist(data)
}

func ParseWatchlist(data []byte) (*Watchlist, error) {
	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return &Watchlist{Tickers: cleanTickers(list)}, nil
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("error parsing watchlist: %w", err)
	}
	wl.Tickers = cleanTickers(wl.Tickers)

	return &wl, nil
}

func cleanTickers(tickers []string) []string {
	res := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.TrimSpace(t); t != "" {
			res = append(res, t)
		}
	}
	return res
}
