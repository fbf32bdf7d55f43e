package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/config"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/apiclient"
	v1 "github.com/dmehra2102/prod-golang-projects/oncoscan/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/localstore"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/service"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "oncoscan console:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Store)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	var sealer localstore.Sealer
	if cfg.Store.SealSecret != "" {
		s, err := localstore.NewAEADSealer(cfg.Store.SealSecret)
		if err != nil {
			return fmt.Errorf("initializing store sealer: %w", err)
		}
		sealer = s
	} else {
		log.Warn("STORE_SEAL_SECRET is not set; tokens and notes are stored unencrypted")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector("oncoscan", reg)

	store := localstore.New(db, sealer)
	activityRepo := localstore.NewActivityRepository(db)
	creds := auth.DefaultChain(store, logger.Named(log, "credentials"))
	client := apiclient.New(cfg.API, m, logger.Named(log, "apiclient"))

	activitySvc := service.NewActivityService(activityRepo, m, logger.Named(log, "activity"))
	defer activitySvc.Shutdown()

	view := service.NewHistoryView()
	sessionSvc := service.NewSessionService(client.Auth(), store, creds, activitySvc, logger.Named(log, "session"))
	submissionSvc := service.NewSubmissionService(creds, client.Scans(), cfg.API.StaticBaseURL, activitySvc, m, logger.Named(log, "submission"))
	aggregator := service.NewHistoryAggregator(creds, client.Scans(), client.Patients(), m, logger.Named(log, "history"))
	deletion := service.NewDeletionCoordinator(view, creds, client.Scans(), activitySvc, m, logger.Named(log, "deletion"))
	notesSvc := service.NewNotesService(store, activitySvc, m, logger.Named(log, "notes"))
	if _, err := notesSvc.Mount(ctx); err != nil {
		log.Warn("notes not loaded at startup; retrying on first read", zap.Error(err))
	}

	router := v1.NewRouter(cfg, v1.Handlers{
		Session:  v1.NewSessionHandler(sessionSvc),
		Scans:    v1.NewScanHandler(submissionSvc, cfg.Server.MaxUploadBytes),
		History:  v1.NewHistoryHandler(aggregator, view, deletion, cfg.API.AssetOrigin),
		Notes:    v1.NewNotesHandler(notesSvc),
		Activity: v1.NewActivityHandler(activityRepo),
	}, m, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("console listening",
			zap.String("addr", srv.Addr),
			zap.String("api", cfg.API.BaseURL),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
