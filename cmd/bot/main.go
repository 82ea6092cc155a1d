package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"hl-strategy-bot/internal/alerts"
	"hl-strategy-bot/internal/bot"
	"hl-strategy-bot/internal/config"
	"hl-strategy-bot/internal/exchange"
	"hl-strategy-bot/internal/feed"
	"hl-strategy-bot/internal/logging"
	"hl-strategy-bot/internal/metrics"
	"hl-strategy-bot/internal/recorder"
	"hl-strategy-bot/internal/risk"
	"hl-strategy-bot/internal/state/sqlite"
	"hl-strategy-bot/internal/stats"
	"hl-strategy-bot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "force debug log level")
	dryRun := flag.Bool("dry-run", false, "force dry run mode")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *dryRun {
		cfg.Trading.DryRun = true
	}
	log := logging.New(cfg.Log)
	log.Info("config loaded", zap.String("path", *configPath))

	if err := run(cfg, log); err != nil && err != context.Canceled {
		log.Error("bot terminated", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	apiKey := os.Getenv("HL_API_KEY")
	apiSecret := os.Getenv("HL_API_SECRET")
	client, err := exchange.New(cfg.REST.BaseURL, apiKey, apiSecret, cfg.REST.Timeout, log)
	if err != nil {
		return fmt.Errorf("exchange client: %w", err)
	}

	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	defer store.Close()

	names := make([]string, 0, len(cfg.Strategies))
	for name := range cfg.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := strategy.NewRegistry()
	for _, name := range names {
		s, err := strategy.New(name, cfg.Strategies[name], log)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", name, err)
		}
		if err := reg.Add(s); err != nil {
			return fmt.Errorf("strategy %s: %w", name, err)
		}
	}
	log.Info("strategies loaded", zap.Int("count", reg.Len()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot.RestoreStrategies(ctx, store, reg, log)

	var rec bot.Recorder
	if cfg.Recorder.Enabled {
		w, err := recorder.New(cfg.Recorder.DSN, log)
		if err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
		w.Start(ctx)
		defer w.Close()
		rec = w
	}

	m := metrics.NewNoop()
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheus()
		m = prom.Metrics
		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			log.Info("metrics listening", zap.String("addr", cfg.Metrics.ListenAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	b := bot.New(bot.Options{
		Config:   cfg,
		Log:      log,
		Exchange: client,
		Feed:     feed.New(cfg.WS.URL, cfg.WS.PingInterval, log),
		Registry: reg,
		Risk:     risk.New(cfg.Risk),
		Stats:    stats.New(),
		Store:    store,
		Recorder: rec,
		Metrics:  m,
		Alerts:   alerts.NewTelegram(cfg.Telegram, log),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Trading.StopTimeout)
	defer cancel()
	if err := b.Stop(stopCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	<-errCh
	return nil
}
