package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/upsell/internal/api"
	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/detector"
	"github.com/gyaneshwarpardhi/upsell/internal/engine"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	cfgPath := flag.String("config", "configs/upsell.yaml", "Path to upsell YAML config")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Detectors + engine ───────────────────────────────────────────────────
	reg, err := detector.FromConfig(cfg.Rules)
	if err != nil {
		slog.Error("failed to build detectors", "err", err)
		os.Exit(1)
	}
	slog.Info("detectors registered", "kinds", reg.Kinds())
	eng := engine.New(reg, cfg.Engine)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		slog.Info("config hot-reloaded",
			"version", newCfg.Version,
			"high_value_price_cutoff", newCfg.Thresholds.HighValuePriceCutoff,
			"premium_feature_count_cutoff", newCfg.Thresholds.PremiumFeatureCountCutoff,
			"cross_category_cutoff", newCfg.Thresholds.CrossCategoryCutoff,
		)
		newReg, err := detector.FromConfig(newCfg.Rules)
		if err != nil {
			slog.Warn("hot-reload kept previous detectors: rules invalid", "err", err)
			return
		}
		eng.SwapRegistry(newReg)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	listen := cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}
	srv := &http.Server{
		Addr:         listen,
		Handler:      api.New(eng, loader),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", listen, "workers", cfg.Engine.Workers)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	slog.Info("goodbye")
}
