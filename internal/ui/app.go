// Package ui provides the interactive terminal menu.
package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polyinsider/collector/internal/chart"
	"github.com/polyinsider/collector/internal/collector"
	"github.com/polyinsider/collector/internal/dataset"
	"github.com/polyinsider/collector/internal/metrics"
	"github.com/polyinsider/collector/internal/report"
	"github.com/polyinsider/collector/internal/store"
	"github.com/polyinsider/collector/internal/wallet"
)

const mainPage = "main"

// Services are the operations the menu drives.
type Services struct {
	Collector *collector.Collector
	Registry  *wallet.Registry
	Renderer  *chart.Renderer
	Tracker   *metrics.MetricsTracker
	DataDir   string
}

// App is the main TUI application.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	layout *tview.Flex

	// Views
	menu           *tview.List
	results        *ResultsView
	statsDashboard *StatsDashboardView
	activity       *ActivityLogView

	svc Services

	// State
	mu     sync.Mutex
	busy   bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new TUI application.
func NewApp(svc Services) *App {
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		app:    tview.NewApplication(),
		svc:    svc,
		ctx:    ctx,
		cancel: cancel,
	}

	app.results = NewResultsView()
	app.statsDashboard = NewStatsDashboardView()
	app.activity = NewActivityLogView()
	app.menu = app.newMenu()

	app.setupLayout()
	app.setupKeyboard()

	return app
}

func (a *App) newMenu() *tview.List {
	list := tview.NewList().
		ShowSecondaryText(true).
		AddItem("Run Wallet Analysis", "Fetch history and save qualifying markets", '1', a.showWalletPicker).
		AddItem("Add New Wallet", "Register a name and address", '2', a.showAddWallet).
		AddItem("Create Market Plot", "Chart a saved market dataset", '3', a.showBloggerPicker).
		AddItem("Exit", "Quit the application", 'q', a.Stop)

	list.SetTitle(" Menu ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)
	return list
}

// setupLayout creates the menu, results, stats and activity panels.
func (a *App) setupLayout() {
	// Left column: Menu (top) | Stats Dashboard (bottom)
	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.menu, 10, 0, true).
		AddItem(a.statsDashboard.Widget(), 0, 1, false)

	// Right column: Results (top) | Activity (bottom)
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.results.Widget(), 0, 3, false).
		AddItem(a.activity.Widget(), 0, 1, false)

	a.layout = tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(right, 0, 2, false)

	a.pages = tview.NewPages().AddPage(mainPage, a.layout, true, true)
	a.app.SetRoot(a.pages, true).SetFocus(a.menu)
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			// only on the menu so forms can take these letters
			if name, _ := a.pages.GetFrontPage(); name != mainPage {
				return event
			}
			switch event.Rune() {
			case 'r', 'R':
				a.refresh()
				return nil
			}
		}
		return event
	})
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.updateLoop()

	a.activity.Info("ready: choose an option from the menu")
	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// updateLoop periodically refreshes the stats dashboard.
func (a *App) updateLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			snapshot := a.svc.Tracker.Snapshot()
			a.app.QueueUpdateDraw(func() {
				a.statsDashboard.Update(snapshot)
			})
		}
	}
}

// refresh manually refreshes all views.
func (a *App) refresh() {
	snapshot := a.svc.Tracker.Snapshot()
	a.app.QueueUpdateDraw(func() {
		a.statsDashboard.Update(snapshot)
	})
}

// runJob runs fn off the UI goroutine. Only one job runs at a time.
func (a *App) runJob(title string, fn func(ctx context.Context) error) {
	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		a.activity.Error("another job is still running")
		return
	}
	a.busy = true
	a.mu.Unlock()

	a.activity.Info("%s...", title)
	go func() {
		err := fn(a.ctx)
		a.app.QueueUpdateDraw(func() {
			a.mu.Lock()
			a.busy = false
			a.mu.Unlock()
			if err != nil {
				a.activity.Error("%s failed: %s", title, report.DescribeError(err))
			}
		})
	}()
}

// Busy reports whether a job is running.
func (a *App) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

// showWalletPicker lists registered wallets for collection.
func (a *App) showWalletPicker() {
	sessions, err := a.svc.Registry.Load()
	if err != nil {
		a.activity.Error("load wallets: %s", report.DescribeError(err))
		return
	}
	if len(sessions) == 0 {
		a.activity.Error("no wallets in %s, add one first", a.svc.Registry.Path())
		return
	}

	list := tview.NewList().ShowSecondaryText(true)
	list.SetTitle(" Select Wallet ").SetBorder(true)
	for _, s := range sessions {
		list.AddItem(s.Name, s.Address, 0, func() {
			a.closeOverlay("wallets")
			a.collect([]store.WalletSession{s})
		})
	}
	if len(sessions) > 1 {
		list.AddItem("All wallets", fmt.Sprintf("%d wallets, one after another", len(sessions)), 'a', func() {
			a.closeOverlay("wallets")
			a.collect(sessions)
		})
	}
	list.AddItem("Back", "", 'b', func() { a.closeOverlay("wallets") })
	list.SetDoneFunc(func() { a.closeOverlay("wallets") })

	a.showOverlay("wallets", list, 60, 20)
}

func (a *App) collect(sessions []store.WalletSession) {
	a.runJob("collecting", func(ctx context.Context) error {
		var errs []error
		for _, s := range sessions {
			a.app.QueueUpdateDraw(func() {
				a.activity.Info("fetching activity for %s (%s)", s.Name, truncateAddress(s.Address))
			})
			rep, err := a.svc.Collector.Run(ctx, s)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			a.app.QueueUpdateDraw(func() {
				a.results.ShowCollection(rep)
				a.activity.Success("%s: %d records, %d markets saved, %d skipped",
					s.Name, rep.Unique, len(rep.Saved), len(rep.Skipped))
			})
		}
		return errors.Join(errs...)
	})
}

// showAddWallet opens the wallet form.
func (a *App) showAddWallet() {
	form := tview.NewForm()
	form.AddInputField("Name", "", 30, nil, nil).
		AddInputField("Address", "", 44, nil, nil)

	save := func() {
		name := form.GetFormItemByLabel("Name").(*tview.InputField).GetText()
		addr := form.GetFormItemByLabel("Address").(*tview.InputField).GetText()

		s, err := wallet.NewSession(name, addr)
		if err != nil {
			a.showMessage(report.DescribeError(err))
			return
		}
		err = a.svc.Registry.Add(s, false)
		if errors.Is(err, wallet.ErrWalletExists) {
			a.confirm(fmt.Sprintf("Wallet %q already exists. Overwrite it?", s.Name), func() {
				a.saveWallet(s, true)
			})
			return
		}
		a.finishSave(s, err)
	}

	form.AddButton("Save", save).
		AddButton("Cancel", func() { a.closeOverlay("add-wallet") })
	form.SetCancelFunc(func() { a.closeOverlay("add-wallet") })
	form.SetTitle(" Add New Wallet ").SetBorder(true)

	a.showOverlay("add-wallet", form, 64, 9)
}

func (a *App) saveWallet(s store.WalletSession, overwrite bool) {
	a.finishSave(s, a.svc.Registry.Add(s, overwrite))
}

func (a *App) finishSave(s store.WalletSession, err error) {
	if err != nil {
		a.showMessage(report.DescribeError(err))
		return
	}
	a.closeOverlay("add-wallet")
	a.activity.Success("wallet %s saved (%s)", s.Name, s.Address)
}

// showBloggerPicker lists wallet folders that hold datasets.
func (a *App) showBloggerPicker() {
	wallets, err := dataset.ListWallets(a.svc.DataDir)
	if err != nil {
		a.activity.Error("list data: %s", report.DescribeError(err))
		return
	}
	if len(wallets) == 0 {
		a.activity.Error("no datasets in %s, run a wallet analysis first", a.svc.DataDir)
		return
	}

	list := tview.NewList().ShowSecondaryText(true)
	list.SetTitle(" Select Wallet Data ").SetBorder(true)
	for _, w := range wallets {
		list.AddItem(w.Name, fmt.Sprintf("%d markets", w.Markets), 0, func() {
			a.closeOverlay("bloggers")
			a.showMarketPicker(w.Name)
		})
	}
	list.AddItem("Back", "", 'b', func() { a.closeOverlay("bloggers") })
	list.SetDoneFunc(func() { a.closeOverlay("bloggers") })

	a.showOverlay("bloggers", list, 60, 20)
}

// showMarketPicker lists one wallet's datasets.
func (a *App) showMarketPicker(walletName string) {
	markets, err := dataset.ListMarkets(a.svc.DataDir, walletName)
	if err != nil {
		a.activity.Error("list markets: %s", report.DescribeError(err))
		return
	}
	a.results.ShowMarkets(walletName, markets)
	if len(markets) == 0 {
		a.activity.Error("%s has no datasets", walletName)
		return
	}

	list := tview.NewList().ShowSecondaryText(true)
	list.SetTitle(fmt.Sprintf(" %s: Select Market ", walletName)).SetBorder(true)
	for _, m := range markets {
		list.AddItem(m.Slug, fmt.Sprintf("%d records", m.Records), 0, func() {
			a.closeOverlay("markets")
			a.plot(m)
		})
	}
	list.AddItem("Back", "", 'b', func() {
		a.closeOverlay("markets")
		a.showBloggerPicker()
	})
	list.SetDoneFunc(func() { a.closeOverlay("markets") })

	a.showOverlay("markets", list, 70, 24)
}

func (a *App) plot(m dataset.MarketFile) {
	a.runJob("plotting "+m.Slug, func(context.Context) error {
		a.svc.Tracker.SetStatus(metrics.StatusPlotting)
		defer a.svc.Tracker.SetStatus(metrics.StatusIdle)

		out, analysis, err := a.svc.Renderer.RenderFile(m.Path)
		if err != nil {
			a.svc.Tracker.RecordError("plot", err)
			return err
		}
		a.svc.Tracker.IncrementPlots()

		a.app.QueueUpdateDraw(func() {
			a.results.ShowStatistics(analysis, out)
			a.activity.Success("chart saved to %s", out)
			a.confirm("Create another plot?", a.showBloggerPicker)
		})
		return nil
	})
}

// showOverlay centers p above the main layout and focuses it.
func (a *App) showOverlay(name string, p tview.Primitive, width, height int) {
	centered := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)

	a.pages.AddPage(name, centered, true, true)
	a.app.SetFocus(p)
}

func (a *App) closeOverlay(name string) {
	a.pages.RemovePage(name)
	if front, p := a.pages.GetFrontPage(); front == mainPage {
		a.app.SetFocus(a.menu)
	} else if p != nil {
		a.app.SetFocus(p)
	}
}

func (a *App) confirm(text string, yes func()) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(_ int, label string) {
			a.closeOverlay("confirm")
			if label == "Yes" {
				yes()
			}
		})
	a.pages.AddPage("confirm", modal, false, true)
	a.app.SetFocus(modal)
}

func (a *App) showMessage(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) { a.closeOverlay("message") })
	a.pages.AddPage("message", modal, false, true)
	a.app.SetFocus(modal)
}
