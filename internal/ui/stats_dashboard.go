package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/polyinsider/collector/internal/metrics"
)

// StatsDashboardView displays collection counters and recent wallets.
type StatsDashboardView struct {
	textView *tview.TextView
}

// NewStatsDashboardView creates a new stats dashboard view.
func NewStatsDashboardView() *StatsDashboardView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Stats Dashboard ").SetBorder(true)

	return &StatsDashboardView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *StatsDashboardView) Widget() tview.Primitive {
	return v.textView
}

// plainText returns the rendered dashboard without color tags.
func (v *StatsDashboardView) plainText() string {
	return v.textView.GetText(true)
}

// Update refreshes the stats display.
func (v *StatsDashboardView) Update(snapshot metrics.MetricsSnapshot) {
	v.textView.Clear()

	statusColor := "green"
	status := snapshot.Status
	if status != metrics.StatusIdle {
		statusColor = "yellow"
		if snapshot.CurrentWallet != "" {
			status += " " + snapshot.CurrentWallet
		}
	}

	lastError := "none"
	if snapshot.LastError != "" {
		lastError = fmt.Sprintf("[red]%s[-] (%s)", tview.Escape(snapshot.LastError), formatTimeAgo(snapshot.LastErrorAt))
	}

	text := fmt.Sprintf(`[yellow]System Status[-]
Uptime: %s
Status: [%s]%s[-]

[yellow]Collection[-]
Runs: %d
Pages: %d
Records: %d
Duplicates: %d
Markets saved: %d
Markets skipped: %d

[yellow]Charts[-]
Rendered: %d

[yellow]Errors[-]
%s
Last: %s
`,
		formatDuration(snapshot.Uptime),
		statusColor, status,
		snapshot.RunsTotal,
		snapshot.PagesFetched,
		snapshot.RecordsFetched,
		snapshot.DuplicatesRemoved,
		snapshot.MarketsSaved,
		snapshot.MarketsSkipped,
		snapshot.PlotsRendered,
		formatErrorCounts(snapshot.ErrorsByKind),
		lastError,
	)

	if len(snapshot.Wallets) > 0 {
		var b strings.Builder
		b.WriteString("\n[yellow]Recent Wallets[-]\n")
		for _, w := range snapshot.Wallets {
			fmt.Fprintf(&b, "%s %s: %d saved, %d skipped (%s)\n",
				w.Name, truncateAddress(w.Address), w.MarketsSaved, w.MarketsSkip, formatTimeAgo(w.LastCollected))
		}
		text += b.String()
	}

	fmt.Fprint(v.textView, text)
}

func formatErrorCounts(byKind map[string]int64) string {
	if len(byKind) == 0 {
		return "Count: 0"
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s: %d", k, byKind[k]))
	}
	return strings.Join(parts, ", ")
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := time.Since(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("%.0fh ago", elapsed.Hours())
	}
	return fmt.Sprintf("%.0fd ago", elapsed.Hours()/24)
}

// truncateAddress shortens a wallet address for display.
func truncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
