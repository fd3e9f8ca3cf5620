package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	_ "github.com/tbourn/x402-media-gateway/docs"
	"github.com/tbourn/x402-media-gateway/internal/config"
	httpapi "github.com/tbourn/x402-media-gateway/internal/http"
	"github.com/tbourn/x402-media-gateway/internal/metrics"
	"github.com/tbourn/x402-media-gateway/internal/observability"
	"github.com/tbourn/x402-media-gateway/internal/payment"
	"github.com/tbourn/x402-media-gateway/internal/provider"
	"github.com/tbourn/x402-media-gateway/internal/repo"
	"github.com/tbourn/x402-media-gateway/internal/routes"
	"github.com/tbourn/x402-media-gateway/internal/services"
	"github.com/tbourn/x402-media-gateway/internal/storage"
	"github.com/tbourn/x402-media-gateway/internal/transcode"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway and the cleanup worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	defs, err := routes.Load(cfg.RoutesPath)
	if err != nil {
		return err
	}
	reg, err := routes.NewRegistry(defs, cfg.Payment.TokenDecimals)
	if err != nil {
		return err
	}
	metrics.ActiveRoutes.Set(float64(reg.Len()))

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := os.MkdirAll(cfg.Pipeline.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}

	store := newStore(cfg)
	gate := &payment.Gate{
		Facilitator: payment.NewFacilitatorClient(cfg.Payment.FacilitatorURL, cfg.Payment.FacilitatorTimeout),
		Network:     cfg.Payment.Network,
		PayTo:       cfg.Payment.WalletAddress,
		Signer:      cfg.Payment.FacilitatorSigner,
		Token: payment.Token{
			Address:  cfg.Payment.TokenAddress,
			Symbol:   cfg.Payment.TokenSymbol,
			Name:     cfg.Payment.TokenName,
			Version:  cfg.Payment.TokenVersion,
			Decimals: cfg.Payment.TokenDecimals,
		},
		Logger: log.With().Str("component", "payment").Logger(),
	}

	gen := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout,
		provider.WithMaxDownloadBytes(cfg.Provider.MaxDownloadBytes))
	transcoder := transcode.NewRunner(transcode.WithBinary(cfg.Pipeline.TranscoderBin), transcode.WithScratchDir(cfg.Pipeline.ScratchDir))

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:         db,
		Registry:   reg,
		Gate:       gate,
		Provider:   gen,
		Transcoder: transcoder,
		Store:      store,
		Version:    appVersion(),
	}, cfg)

	// The worker gets its own context: it keeps sweeping until the server
	// has drained.
	stopWorker := startWorker(newCleanupWorker(cfg, db, store))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Int("routes", reg.Len()).
			Str("network", cfg.Payment.Network).
			Str("bucket", store.Bucket()).
			Str("transcoder", transcoder.Binary()).
			Str("version", appVersion()).
			Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stopWorker()
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(sctx)

	stopWorker()
	return err
}

type backgroundRunner interface {
	Run(ctx context.Context)
}

// startWorker runs w in its own goroutine. The returned func cancels it and
// blocks until Run has returned.
func startWorker(w backgroundRunner) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newStore(cfg config.Config) *storage.Store {
	return storage.New(storage.NewClient(cfg.Storage), cfg.Storage.Bucket, cfg.Storage.PublicURL)
}

func newCleanupWorker(cfg config.Config, db *gorm.DB, store services.ObjectStore) *services.CleanupWorker {
	return &services.CleanupWorker{
		DB:       db,
		Repo:     httpapi.MediaRepoShim{},
		Store:    store,
		Interval: cfg.Pipeline.CleanupInterval,
		Logger:   log.With().Str("component", "cleanup").Logger(),
	}
}
