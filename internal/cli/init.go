// Package cli provides common initialization for the kashela and
// kashela-worker binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"kashela/internal/config"
	klog "kashela/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *klog.Logger {
	logCfg := klog.DefaultConfig()
	logCfg.Level = klog.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.Component = component
	logger := klog.New(logCfg)
	klog.SetDefault(logger)
	return logger
}

// MustValidate runs each check and exits the process on the first failure.
func MustValidate(logger *klog.Logger, checks ...func() error) {
	for _, check := range checks {
		if err := check(); err != nil {
			logger.Error("Configuration validation failed", klog.FieldError, err)
			os.Exit(1)
		}
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *klog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
