package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"perfdash/config"
	c "perfdash/core"
	e "perfdash/data/extensions"
	r "perfdash/data/repos"
)

type reportOptions struct {
	tickers   string
	start     string
	end       string
	watchlist string
}

func newReportCmd() *cobra.Command {
	v := config.NewViper()
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print metrics and correlation tables for a set of tickers",
		Example: `  perfdash report --tickers MC.PA,BNP.PA,SAN.PA --start 2019-01-01
  perfdash report --watchlist cac.yaml --source csv --csv-path prices.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.tickers, "tickers", "", "comma separated tickers, e.g. MC.PA,BNP.PA")
	cmd.Flags().StringVar(&opts.start, "start", "", "first date, YYYY-MM-DD (default_start when empty)")
	cmd.Flags().StringVar(&opts.end, "end", "", "end date, exclusive, YYYY-MM-DD (tomorrow when empty)")
	cmd.Flags().StringVar(&opts.watchlist, "watchlist", "", "yaml watchlist file with tickers and optional dates")
	cmd.Flags().String("source", config.SourceYahoo, "price source: csv, alphavantage, yahoo or alpaca")
	cmd.Flags().String("csv-path", "", "price file for the csv source")
	_ = v.BindPFlag("source", cmd.Flags().Lookup("source"))
	_ = v.BindPFlag("csv_path", cmd.Flags().Lookup("csv-path"))

	return cmd
}

func runReport(ctx context.Context, w io.Writer, cfg config.Config, opts reportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tickers, start, end, err := resolveReportInput(cfg, opts, time.Now())
	if err != nil {
		return err
	}

	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}

	analysis, err := c.Analyze(ctx, loader, tickers, start, end)
	if err != nil {
		return fmt.Errorf("error running analysis: %w", err)
	}

	renderReport(w, analysis)
	return nil
}

// resolveReportInput merges the watchlist with the flags, flags win
func resolveReportInput(cfg config.Config, opts reportOptions, now time.Time) ([]string, time.Time, time.Time, error) {
	startStr, endStr := opts.start, opts.end
	var tickers []string

	if opts.watchlist != "" {
		wl, err := r.LoadWatchlist(opts.watchlist)
		if err != nil {
			return nil, time.Time{}, time.Time{}, err
		}
		tickers = wl.Tickers
		if startStr == "" {
			startStr = wl.Start
		}
		if endStr == "" {
			endStr = wl.End
		}
	}
	if opts.tickers != "" {
		tickers = e.SplitList(opts.tickers)
	}

	start, end := cfg.DefaultRange(now)
	var err error
	if startStr != "" {
		if start, err = e.ParseShort(startStr); err != nil {
			return nil, time.Time{}, time.Time{}, err
		}
	}
	if endStr != "" {
		if end, err = e.ParseShort(endStr); err != nil {
			return nil, time.Time{}, time.Time{}, err
		}
	}

	return tickers, start, end, nil
}

func renderReport(w io.Writer, a *c.Analysis) {
	if a.Prices.IsEmpty() {
		fmt.Fprintln(w, "No prices loaded")
		return
	}

	fmt.Fprintf(w, "%v to %v, %v trading days\n",
		e.FmtShort(a.Prices.Dates[0]), e.FmtShort(a.Prices.Dates[len(a.Prices.Dates)-1]), a.Prices.Rows())

	mt := table.NewWriter()
	mt.SetOutputMirror(w)
	mt.SetStyle(table.StyleLight)
	mt.SetTitle("Metrics")
	mt.AppendHeader(table.Row{"SYMBOL", "VOLATILITY", "BETA", "SHARPE", "ANNUAL RETURN", "OBS"})
	for _, m := range a.Metrics {
		beta := formatFloat(m.Beta)
		if m.BetaStatus != c.BetaOK {
			beta = "- (" + m.BetaStatus.String() + ")"
		}
		mt.AppendRow(table.Row{m.Symbol, formatFloat(m.Volatility), beta, formatFloat(m.SharpeRatio), formatFloat(m.AnnualReturn), m.Observations})
	}
	mt.SetColumnConfigs(rightAligned(2, 6))
	mt.Render()
	fmt.Fprintln(w)

	if a.Correlation.IsEmpty() {
		fmt.Fprintln(w, "Correlation: needs at least two assets with data")
		return
	}

	ct := table.NewWriter()
	ct.SetOutputMirror(w)
	ct.SetStyle(table.StyleLight)
	ct.SetTitle("Correlation")
	hdr := append(table.Row{""}, e.Map(a.Correlation.Symbols, func(s string) any { return s })...)
	ct.AppendHeader(hdr)
	for i, s := range a.Correlation.Symbols {
		row := table.Row{s}
		for j := range a.Correlation.Symbols {
			row = append(row, formatFloat(a.Correlation.Values.At(i, j)))
		}
		ct.AppendRow(row)
	}
	ct.SetColumnConfigs(rightAligned(2, len(hdr)))
	ct.Render()
}

func rightAligned(from, to int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, 0, to-from+1)
	for n := from; n <= to; n++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	return cfgs
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
