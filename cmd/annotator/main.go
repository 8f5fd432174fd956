package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/tv_annotate/internal/api"
	"github.com/dgnsrekt/tv_annotate/internal/config"
	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
	"github.com/dgnsrekt/tv_annotate/internal/domfeed"
	"github.com/dgnsrekt/tv_annotate/internal/engine"
	"github.com/dgnsrekt/tv_annotate/internal/store"
	"github.com/dgnsrekt/tv_annotate/internal/wsfeed"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("annotator config loaded",
		"bind_addr", cfg.BindAddr,
		"db_path", cfg.DBPath,
		"ws_path", cfg.WSPath,
		"dom_feed", cfg.DOMFeed,
		"drag_threshold_px", cfg.DragThresholdPx,
		"autosave_delay_ms", cfg.AutosaveDelayMS,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	gateway, err := openGateway(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open tool store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			slog.Debug("tool store close failed", "error", err)
		}
	}()

	broker := dispatch.NewBroker()
	eng := engine.New(engine.Config{
		DragThresholdPx:      float64(cfg.DragThresholdPx),
		SnapTolerancePercent: cfg.SnapTolerancePercent,
		AutosaveDelay:        cfg.AutosaveDelay(),
	}, gateway, broker)
	defer func() {
		if err := eng.Close(); err != nil {
			slog.Error("engine close failed", "error", err)
		}
	}()

	dispatcher := dispatch.NewDispatcher(eng)
	pointerWS := wsfeed.NewHandler(dispatcher, eng)

	if cfg.DOMFeed {
		feed := domfeed.NewFeed(cfg.CDPURL(), cfg.TabURLFilter, dispatcher)
		if err := feed.Start(context.Background()); err != nil {
			slog.Error("failed to start dom pointer feed", "cdp_url", cfg.CDPURL(), "error", err)
			os.Exit(1)
		}
		defer feed.Stop()
	}

	h := api.NewServer(eng, api.Options{
		Broker:        broker,
		Dispatcher:    dispatcher,
		PointerWS:     pointerWS,
		PointerWSPath: cfg.WSPath,
	})

	srv := &http.Server{Addr: cfg.BindAddr, Handler: h}

	go func() {
		slog.Info("annotator listening", "addr", cfg.BindAddr, "docs", "http://"+cfg.BindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("annotator server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("annotator shutdown failed", "error", err)
	}
}

// openGateway picks the tool store. ANNOTATOR_DB_PATH set to the empty
// string disables persistence entirely, which is handy when pointing the
// annotator at a throwaway chart session.
func openGateway(dbPath string) (store.Gateway, error) {
	if dbPath == "" {
		slog.Warn("persistence disabled; tools will not survive restart")
		return store.NewNoopGateway(), nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteGateway(dbPath)
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
