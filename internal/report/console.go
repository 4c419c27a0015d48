// Package report prints collection and chart summaries as text tables.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/polyinsider/collector/internal/chart"
	"github.com/polyinsider/collector/internal/collector"
	"github.com/polyinsider/collector/internal/dataset"
	"github.com/polyinsider/collector/internal/store"
)

// Console writes reports to out.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// RenderCollection prints the saved markets and the skip report of a run.
func (c *Console) RenderCollection(r *collector.Report) error {
	fmt.Fprintf(c.out, "\nWallet %s (%s) run %s\n", r.Wallet.Name, r.Wallet.Address, r.RunID)
	fmt.Fprintf(c.out, "  fetched %d, unique %d, duplicates %d, markets %d, took %s\n",
		r.Fetched, r.Unique, r.Duplicates, r.Markets, r.Duration.Round(time.Millisecond))

	if len(r.Saved) > 0 {
		fmt.Fprintf(c.out, "\nSaved %d market(s):\n", len(r.Saved))
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Market", "Trades", "Records", "File")
		for i, s := range r.Saved {
			if err := table.Append(
				fmt.Sprintf("%d", i+1),
				s.MarketSlug,
				fmt.Sprintf("%d", s.Trades),
				fmt.Sprintf("%d", s.Records),
				s.Path,
			); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(c.out, "\nNo market met the minimum trade count.")
	}

	return c.RenderSkipped(r.Skipped)
}

// RenderSkipped prints markets left out by the quality filter.
func (c *Console) RenderSkipped(skipped []store.SkipEntry) error {
	if len(skipped) == 0 {
		return nil
	}

	fmt.Fprintf(c.out, "\nSkipped %d market(s) with too few trades:\n", len(skipped))
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Trades")
	for _, s := range skipped {
		if err := table.Append(s.MarketSlug, fmt.Sprintf("%d", s.TradeCount)); err != nil {
			return err
		}
	}
	return table.Render()
}

// RenderStatistics prints a chart's summary statistics.
func (c *Console) RenderStatistics(a *chart.Analysis, pngPath string) error {
	fmt.Fprintf(c.out, "\nMarket %s: %d trades\n", a.Slug, a.Stats.TotalTrades)

	table := tablewriter.NewWriter(c.out)
	table.Header("Outcome", "Trades", "Contracts", "USDC")
	for _, o := range chart.PlottedOutcomes {
		s := a.Stats.PerOutcome[o]
		if err := table.Append(
			string(o),
			fmt.Sprintf("%d", s.TradeCount),
			s.ContractTotal.StringFixed(2),
			"$"+s.UsdcTotal.StringFixed(2),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if pngPath != "" {
		fmt.Fprintf(c.out, "  chart saved to %s\n", pngPath)
	}
	return nil
}

// RenderWallets prints the wallet list alongside stored dataset counts.
func (c *Console) RenderWallets(wallets []store.WalletSession, stored []dataset.WalletDir) error {
	markets := make(map[string]int, len(stored))
	for _, w := range stored {
		markets[w.Name] = w.Markets
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Name", "Address", "Datasets")
	for _, w := range wallets {
		if err := table.Append(w.Name, w.Address, fmt.Sprintf("%d", markets[w.Name])); err != nil {
			return err
		}
	}
	return table.Render()
}

// RenderMarkets prints one wallet's datasets.
func (c *Console) RenderMarkets(wallet string, markets []dataset.MarketFile) error {
	fmt.Fprintf(c.out, "\n%s: %d dataset(s)\n", wallet, len(markets))
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Records", "File")
	for _, m := range markets {
		if err := table.Append(m.Slug, fmt.Sprintf("%d", m.Records), m.Path); err != nil {
			return err
		}
	}
	return table.Render()
}
