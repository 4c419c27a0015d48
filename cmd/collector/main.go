// Package main is the entry point for the Polymarket wallet activity collector.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/polyinsider/collector/internal/chart"
	"github.com/polyinsider/collector/internal/collector"
	"github.com/polyinsider/collector/internal/config"
	"github.com/polyinsider/collector/internal/dataset"
	"github.com/polyinsider/collector/internal/metrics"
	"github.com/polyinsider/collector/internal/report"
	"github.com/polyinsider/collector/internal/store"
	"github.com/polyinsider/collector/internal/ui"
	"github.com/polyinsider/collector/internal/wallet"
)

func main() {
	collectName := flag.String("collect", "", "collect one wallet from the wallet list by name")
	collectAll := flag.Bool("collect-all", false, "collect every wallet in the wallet list")
	plotPath := flag.String("plot", "", "render the chart for a dataset CSV")
	list := flag.Bool("list", false, "list wallets and stored datasets")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	headless := *collectName != "" || *collectAll || *plotPath != "" || *list
	tui := cfg.EnableTUI && !headless

	// The TUI owns the terminal, so logs go to a file while it runs.
	logOut := io.Writer(os.Stdout)
	if tui {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.Error("failed to open log file", "path", cfg.LogFile, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}

	logger := setupLogger(cfg.LogLevel, logOut)
	slog.SetDefault(logger)

	slog.Info("collector starting", "version", "1.0.0")
	slog.Info("config_loaded",
		"data_api_url", cfg.DataAPIURL,
		"page_size", cfg.PageSize,
		"max_records", cfg.MaxRecords,
		"max_offset", cfg.MaxOffset,
		"rate_limit", cfg.RateLimitDelay,
		"min_trades", cfg.MinTrades,
		"wallet_file", cfg.WalletFile,
		"data_dir", cfg.DataDir,
		"plots_dir", cfg.PlotsDir,
		"plot_dpi", cfg.PlotDPI,
		"enable_tui", tui,
	)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := metrics.NewMetricsTracker()
	coll := collector.NewFromConfig(cfg, tracker, logger)
	registry := wallet.NewRegistry(cfg.WalletFile, logger)
	renderer := chart.NewRenderer(cfg.PlotsDir, cfg.PlotDPI, logger)
	console := report.NewConsole(os.Stdout)

	if tui {
		app := ui.NewApp(ui.Services{
			Collector: coll,
			Registry:  registry,
			Renderer:  renderer,
			Tracker:   tracker,
			DataDir:   cfg.DataDir,
		})

		go func() {
			<-ctx.Done()
			app.Stop()
		}()

		slog.Info("starting_tui")
		if err := app.Run(); err != nil {
			slog.Error("tui_error", "error", err)
			os.Exit(1)
		}
		slog.Info("shutdown_complete")
		return
	}

	var runErr error
	switch {
	case *list:
		runErr = listAll(registry, cfg.DataDir, console)
	case *collectName != "":
		runErr = collectOne(ctx, coll, registry, console, *collectName)
	case *collectAll:
		runErr = collectEvery(ctx, coll, registry, console)
	case *plotPath != "":
		runErr = plotOne(renderer, console, *plotPath)
	default:
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nset ENABLE_TUI=true or pass one of the flags above")
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", report.DescribeError(runErr))
		slog.Error("run_failed", "error", runErr)
		os.Exit(1)
	}
	slog.Info("shutdown_complete")
}

func collectOne(ctx context.Context, c *collector.Collector, reg *wallet.Registry, out *report.Console, name string) error {
	session, err := reg.Find(name)
	if err != nil {
		return err
	}
	rep, err := c.Run(ctx, session)
	if err != nil {
		return err
	}
	return out.RenderCollection(rep)
}

func collectEvery(ctx context.Context, c *collector.Collector, reg *wallet.Registry, out *report.Console) error {
	sessions, err := reg.Load()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no wallets in %s", reg.Path())
	}

	reports, runErr := c.RunAll(ctx, sessions)
	for _, r := range reports {
		if err := out.RenderCollection(r); err != nil {
			return err
		}
	}
	return runErr
}

func plotOne(r *chart.Renderer, out *report.Console, path string) error {
	png, analysis, err := r.RenderFile(path)
	if err != nil {
		var empty *store.EmptyDataError
		if errors.As(err, &empty) {
			slog.Warn("nothing_to_plot", "path", path)
		}
		return err
	}
	return out.RenderStatistics(analysis, png)
}

func listAll(reg *wallet.Registry, dataDir string, out *report.Console) error {
	sessions, err := reg.Load()
	if err != nil {
		return err
	}
	stored, err := dataset.ListWallets(dataDir)
	if err != nil {
		return err
	}
	if err := out.RenderWallets(sessions, stored); err != nil {
		return err
	}
	for _, w := range stored {
		markets, err := dataset.ListMarkets(dataDir, w.Name)
		if err != nil {
			return err
		}
		if err := out.RenderMarkets(w.Name, markets); err != nil {
			return err
		}
	}
	return nil
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(w, opts)
	return slog.New(handler)
}
