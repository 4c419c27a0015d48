package ui

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/polyinsider/collector/internal/chart"
	"github.com/polyinsider/collector/internal/collector"
	"github.com/polyinsider/collector/internal/dataset"
)

// ResultsView shows the outcome of the last job as a table.
type ResultsView struct {
	table *tview.Table
}

// NewResultsView creates a new results view.
func NewResultsView() *ResultsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Results ").SetBorder(true)

	return &ResultsView{table: table}
}

// Widget returns the tview primitive.
func (v *ResultsView) Widget() tview.Primitive {
	return v.table
}

// ShowCollection lists saved and skipped markets of a collection run.
func (v *ResultsView) ShowCollection(r *collector.Report) {
	v.reset("Market", "Status", "Trades", "Records")

	row := 1
	for _, s := range r.Saved {
		v.setRow(row, s.MarketSlug, "[green]saved[-]", fmt.Sprintf("%d", s.Trades), fmt.Sprintf("%d", s.Records))
		row++
	}
	for _, s := range r.Skipped {
		v.setRow(row, s.MarketSlug, "[red]skipped[-]", fmt.Sprintf("%d", s.TradeCount), "")
		row++
	}

	v.table.SetTitle(fmt.Sprintf(" %s: %d saved, %d skipped ", r.Wallet.Name, len(r.Saved), len(r.Skipped)))
	v.table.ScrollToBeginning()
}

// ShowMarkets lists a wallet's datasets.
func (v *ResultsView) ShowMarkets(wallet string, markets []dataset.MarketFile) {
	v.reset("Market", "Records")
	for i, m := range markets {
		v.setRow(i+1, m.Slug, fmt.Sprintf("%d", m.Records))
	}
	v.table.SetTitle(fmt.Sprintf(" %s: %d datasets ", wallet, len(markets)))
	v.table.ScrollToBeginning()
}

// ShowStatistics lists per-outcome totals of a rendered chart.
func (v *ResultsView) ShowStatistics(a *chart.Analysis, path string) {
	v.reset("Outcome", "Trades", "Contracts", "USDC")
	for i, o := range chart.PlottedOutcomes {
		s := a.Stats.PerOutcome[o]
		v.setRow(i+1, string(o), fmt.Sprintf("%d", s.TradeCount), s.ContractTotal.StringFixed(2), "$"+s.UsdcTotal.StringFixed(2))
	}
	v.setRow(len(chart.PlottedOutcomes)+1, "Total", fmt.Sprintf("%d", a.Stats.TotalTrades), "", "")
	v.table.SetTitle(fmt.Sprintf(" %s -> %s ", a.Slug, path))
	v.table.ScrollToBeginning()
}

// rowCount returns the number of data rows, excluding the header.
func (v *ResultsView) rowCount() int {
	n := v.table.GetRowCount()
	if n == 0 {
		return 0
	}
	return n - 1
}

// cellText returns the text at a data row and column.
func (v *ResultsView) cellText(row, col int) string {
	cell := v.table.GetCell(row+1, col)
	if cell == nil {
		return ""
	}
	return cell.Text
}

func (v *ResultsView) reset(headers ...string) {
	v.table.Clear()
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false).
			SetExpansion(1)
		v.table.SetCell(0, col, cell)
	}
}

func (v *ResultsView) setRow(row int, cells ...string) {
	for col, text := range cells {
		v.table.SetCell(row, col, tview.NewTableCell(text).SetAlign(tview.AlignLeft))
	}
}
