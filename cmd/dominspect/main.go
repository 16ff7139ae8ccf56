// Command dominspect runs a live DOM inspector against a Chrome page.
//
// Usage:
//
//	dominspect -url https://example.com              # launch Chrome, inspect the page
//	dominspect -attach app.local -remote ws://...    # adopt an open page in a running Chrome
//	dominspect -config dominspect.yaml               # full configuration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/dominspect/appstate"
	"github.com/hazyhaar/dominspect/internal/browser"
	"github.com/hazyhaar/dominspect/internal/config"
	"github.com/hazyhaar/dominspect/panel"
)

func main() {
	configPath := flag.String("config", "", "path to dominspect.yaml config file")
	url := flag.String("url", "", "navigate to a URL and inspect it")
	attach := flag.String("attach", "", "attach to an open page whose URL contains this string")
	remote := flag.String("remote", "", "WebSocket URL of a running Chrome (empty = launch)")
	listen := flag.String("http", "", "control API listen address (default 127.0.0.1:9223)")
	statePath := flag.String("state", "", "SQLite file for persisted state (empty = in-memory)")
	mcpMode := flag.Bool("mcp", false, "serve MCP tools on stdio instead of the control API")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath, *url, *attach, *remote, *listen, *statePath)
	if err != nil {
		logger.Error("dominspect: config", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, logger, cfg, *mcpMode); err != nil {
		logger.Error("dominspect: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, url, attach, remote, listen, statePath string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	// Flags override file settings.
	if url != "" {
		cfg.Page.URL = url
	}
	if attach != "" {
		cfg.Page.Attach = attach
	}
	if remote != "" {
		cfg.Browser.Remote = remote
	}
	if listen != "" {
		cfg.HTTP.Listen = listen
	}
	if statePath != "" {
		cfg.Persist.Path = statePath
	}

	if cfg.Page.URL == "" && cfg.Page.Attach == "" {
		return nil, fmt.Errorf("a page is required: set -url, -attach, or page in the config file")
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, mcpMode bool) error {
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headless:         cfg.Browser.Headless,
		Stealth:          cfg.Browser.Stealth,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	var page *browser.Page
	var err error
	if cfg.Page.URL != "" {
		page, err = browser.OpenPage(ctx, mgr, cfg.Page.URL)
	} else {
		page, err = browser.AttachPage(ctx, mgr, cfg.Page.Attach)
	}
	if err != nil {
		return err
	}
	defer page.Close()

	var persist panel.Persister
	if cfg.Persist.Path != "" {
		persist, err = panel.OpenSQLitePersister(cfg.Persist.Path)
		if err != nil {
			return err
		}
	}

	hub := panel.NewEventHub(logger)
	sinks := []panel.Sink{hub}
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, panel.NewStdoutSink(nil))
		case "webhook":
			sinks = append(sinks, panel.NewWebhookSink(sc.URL, logger))
		case "sqlite":
			sq, err := panel.OpenSQLiteSink(sc.Path)
			if err != nil {
				return err
			}
			if err := sq.Prune(ctx, sc.RetentionDays); err != nil {
				logger.Warn("dominspect: event log prune failed", "error", err)
			}
			sinks = append(sinks, sq)
		default:
			logger.Warn("dominspect: unknown sink type", "type", sc.Type)
		}
	}

	pnl, err := panel.New(panel.Options{
		Page:    page,
		Store:   appstate.NewMemory(),
		Logger:  logger,
		Persist: persist,
		Sinks:   sinks,
		StateOptions: []panel.StateOption{
			panel.WithPersistDelay(cfg.Persist.Debounce),
		},
	})
	if err != nil {
		return err
	}
	pnl.AttachPicker(panel.NewPicker(page.Page, pnl.PickerCallbacks(ctx), logger))

	if err := pnl.Initialize(ctx); err != nil {
		return err
	}
	defer pnl.Destroy()

	if mcpMode || cfg.MCP.Enabled {
		return serveMCP(ctx, logger, pnl)
	}
	return serveHTTP(ctx, logger, cfg.HTTP.Listen, pnl, hub)
}

func serveMCP(ctx context.Context, logger *slog.Logger, pnl *panel.Panel) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "dominspect",
		Version: "1.0.0",
	}, nil)
	pnl.RegisterMCP(srv)

	logger.Info("dominspect: serving MCP tools on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func serveHTTP(ctx context.Context, logger *slog.Logger, addr string, pnl *panel.Panel, hub *panel.EventHub) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	pnl.RegisterHTTP(r, hub.Handler)

	srv := &http.Server{Addr: addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("dominspect: control API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Warn("dominspect: shutdown", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
