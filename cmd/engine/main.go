package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/cricapi"
	"crickmic-engine/internal/events"
	"crickmic-engine/internal/gemini"
	"crickmic-engine/internal/httpapi"
	"crickmic-engine/internal/logging"
	"crickmic-engine/internal/opengraph"
	"crickmic-engine/internal/orchestrator"
	"crickmic-engine/internal/publish"
	"crickmic-engine/internal/ratelimit"
	"crickmic-engine/internal/scheduler"
	"crickmic-engine/internal/secrets"
	"crickmic-engine/internal/store"
	"crickmic-engine/internal/tracker"
)

const envShutdownToken = "CRICKMIC_SHUTDOWN_TOKEN"

func main() {
	// Engine data dir: use env if provided (the desktop shell passes one), else local folder.
	dataDir := os.Getenv(config.EnvDataDir)
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; a second instance would fight over the db and port.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock data dir: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running in %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config invalid (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	logFile := cfg.Log.File
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(dataDir, logFile)
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       logFile,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	dbPath := filepath.Join(dataDir, "crickmic.db")
	db, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", dbPath).Msg("open database")
	}
	defer db.Close()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	// Cancelled by a signal or by POST /shutdown.
	ctx, stop := context.WithCancel(sigCtx)
	defer stop()

	hub := events.NewHub()
	orch, mon := buildEngine(cfg, db, hub, logger)

	d := httpapi.Deps{
		DB:          db,
		Hub:         hub,
		Orch:        orch,
		Tracker:     mon,
		Secrets:     secrets.NewStore(),
		Log:         logger,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		OnConfig: func(c config.Config) {
			orch.Reconfigure(orchestrator.OptionsFromConfig(c))
			mon.SetInterval(c.Tracker.RefreshSeconds)
			logger.Info().Msg("config applied; model, brand and webhook changes take effect after restart")
		},
	}

	mux := httpapi.NewMux(d)
	srv := &http.Server{
		Handler:           httpapi.Handler(d, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	token := os.Getenv(envShutdownToken)
	if token == "" {
		token, err = randomToken(16)
		if err != nil {
			logger.Fatal().Err(err).Msg("shutdown token")
		}
		logger.Debug().Str("token", token).Msg("generated shutdown token")
	}
	mux.HandleFunc("/shutdown", shutdownHandler(token, stop, logger))

	go scheduler.Every(ctx, 6*time.Hour, "history-cleanup", logger, func(ctx context.Context) error {
		days := cfgVal.Load().(config.Config).History.RetentionDays
		n, err := db.Posts.CleanupOldPosts(ctx, days)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info().Int64("deleted", n).Int("retention_days", days).Msg("history cleanup")
		}
		return nil
	})

	if cfg.Autopilot.StartEnabled {
		orch.StartScan()
	}
	if cfg.Autopilot.RefreshOnBoot {
		orch.RefreshAsync()
	}

	// Bind to loopback only; the dashboard is local.
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("listen")
	}
	logger.Info().Str("addr", "http://"+addr).Str("db", dbPath).Str("config", userCfgPath).Msg("engine listening")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
	}

	mon.Close()
	orch.Close()
	logger.Info().Msg("engine stopped")
}

// buildEngine wires the model, sports-data and publishing clients into the
// orchestrator and the live tracker.
func buildEngine(cfg config.Config, db *store.DB, hub *events.Hub, logger zerolog.Logger) (*orchestrator.Orchestrator, *tracker.Monitor) {
	keys := secrets.NewStore()
	resolve := func(name string, env func() string) func() string {
		return func() string {
			v, err := keys.Resolve(name, env())
			if err != nil {
				return ""
			}
			return v
		}
	}

	model := gemini.NewKeyedModel(resolve(secrets.Gemini, config.GeminiAPIKey), cfg.Gemini.BaseURL, nil)
	limiter := ratelimit.NewHostLimiter(cfg.RapidAPI.RequestsPerSecond, 1)

	var signals gemini.SignalSource
	if cfg.RapidAPI.Enabled {
		signals = cricapi.New(cricapi.Config{
			Host:    cfg.RapidAPI.Host,
			KeyFunc: resolve(secrets.RapidAPI, config.RapidAPIKey),
		}, limiter, logger)
	}

	var pub orchestrator.Publisher
	if wh := publish.NewWebhook(cfg.Publish.WebhookURL, cfg.App.BaseURL, logger); wh.Enabled() {
		pub = wh
	}

	orch := orchestrator.New(orchestrator.Deps{
		Source:    gemini.NewAggregator(model, cfg.Gemini.TextModel, signals, cfg.RapidAPI.MaxSignals, logger),
		Content:   gemini.NewContentGenerator(model, cfg.Gemini.TextModel, cfg.Gemini.Brand),
		Image:     gemini.NewImageGenerator(model, cfg.Gemini.ImageModel, cfg.Gemini.Brand, cfg.Enrichment.PlaceholderImage),
		Fallback:  opengraph.NewFetcher(ratelimit.NewHostLimiter(2, 2), logger),
		Archive:   db.Posts,
		Publisher: pub,
		Notifier:  hub,
		Log:       logger,
	}, orchestrator.OptionsFromConfig(cfg))

	mon := tracker.New(tracker.Deps{
		Fetcher:    gemini.NewLiveUpdater(model, cfg.Gemini.TextModel),
		Dispatcher: orch,
		Notifier:   hub,
		Log:        logger,
	}, cfg.Tracker.RefreshSeconds)

	return orch, mon
}
