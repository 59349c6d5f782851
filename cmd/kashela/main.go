package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kashela/internal/auth"
	"kashela/internal/backend"
	"kashela/internal/cache"
	"kashela/internal/cli"
	"kashela/internal/config"
	"kashela/internal/extract"
	apphttp "kashela/internal/http"
	klog "kashela/internal/log"
	"kashela/internal/parse"
	"kashela/internal/payments"
	"kashela/internal/services"
	"kashela/internal/uploads"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

type engine interface {
	extract.Transcriber
	extract.TextRecognizer
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, klog.ComponentApp)
	cli.MustValidate(logger, cfg.Validate)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", klog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *klog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	data, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := data.Close(); err != nil {
			logger.Error("Backend cleanup failed", klog.FieldError, err)
		}
	}()

	var reports *cache.ReportCache
	if cfg.ReportCacheTTL > 0 {
		reports = cache.NewReportCache(1000, cfg.ReportCacheTTL)
		manager := cache.NewManager()
		manager.Register(reports)
		manager.StartCleanup(cfg.ReportCacheTTL)
		defer manager.Stop()
	}

	transactions := services.NewTransactionService(data.Repository, data.Publisher, reports)
	defer transactions.Close()

	keywords := parse.DefaultKeywordTable()
	if cfg.ReceiptKeywordsFile != "" {
		if keywords, err = parse.LoadKeywordTable(cfg.ReceiptKeywordsFile); err != nil {
			return fmt.Errorf("receipt keywords: %w", err)
		}
		logger.Info("Loaded receipt keyword table", "path", cfg.ReceiptKeywordsFile)
	}

	var extraction engine = extract.Disabled{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := extract.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		extraction = gemini
		logger.Info("Text extraction enabled", "model", cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, audio and image entry are disabled")
	}

	files, closeFiles, err := uploadStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFiles()

	entries := services.NewEntryService(services.EntryDeps{
		Transactions: transactions,
		Receipt:      parse.NewReceiptParser(keywords),
		Transcriber:  extraction,
		OCR:          extraction,
		Files:        files,
		Policy: uploads.Policy{
			MaxSize:    cfg.MaxUploadSize,
			ImageTypes: cfg.AllowedImageTypes,
			AudioTypes: cfg.AllowedAudioTypes,
		},
	})

	deps := apphttp.Deps{
		Transactions:       transactions,
		Entries:            entries,
		Payments:           payments.NewService(paymentGateway(cfg), data.Repository),
		Reports:            reports,
		Logger:             logger.WithComponent(klog.ComponentHTTP),
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadSize:      cfg.MaxUploadSize,
	}
	if cfg.AuthEnabled() {
		deps.Verifier = auth.NewVerifier(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, protected routes will answer 503")
	}
	if cfg.SupabaseURL != "" {
		deps.Auth = auth.NewGoTrueClient(cfg.SupabaseURL, cfg.SupabaseKey, &http.Client{Timeout: 15 * time.Second})
	}

	apphttp.Version = version
	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting kashela server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"mpesa_mode", cfg.MpesaMode,
			"uploads", cfg.UploadBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func uploadStore(ctx context.Context, cfg *config.Config) (uploads.Store, func(), error) {
	if cfg.UploadBackend == config.UploadGCS {
		store, err := uploads.NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs uploads: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}
	store, err := uploads.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {}, nil
}

func paymentGateway(cfg *config.Config) payments.Gateway {
	if cfg.MpesaMode != config.MpesaDaraja {
		return payments.MockGateway{}
	}
	return payments.NewDarajaGateway(payments.DarajaConfig{
		BaseURL:        cfg.MpesaBaseURL,
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		Shortcode:      cfg.MpesaShortcode,
		Passkey:        cfg.MpesaPasskey,
		CallbackURL:    cfg.MpesaCallbackURL,
	}, &http.Client{Timeout: 30 * time.Second})
}
