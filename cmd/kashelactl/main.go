// Command kashelactl is the operator tool for Kashela: it runs the parsers
// offline, prints monthly reports from the SQLite store and applies
// migrations.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	klog "kashela/internal/log"
)

var version = "dev"

type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetDefault("database.path", "./data/kashela.db")
	a.v.SetDefault("logging.level", "warn")

	root := &cobra.Command{
		Use:           "kashelactl",
		Short:         "Operator tool for the Kashela finance API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./kashela.yaml)")
	root.PersistentFlags().String("db", "", "SQLite database path")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("database.path", root.PersistentFlags().Lookup("db"))
	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(a.parseCmd())
	root.AddCommand(a.reportCmd())
	root.AddCommand(a.migrateCmd())
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) initConfig(stderr io.Writer) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("kashela")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("KASHELA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	logCfg := klog.DefaultConfig()
	logCfg.Level = klog.ParseLevel(a.v.GetString("logging.level"))
	logCfg.Output = stderr
	logCfg.Component = klog.ComponentCLI
	klog.SetDefault(klog.New(logCfg))
	slog.Debug("Configuration loaded", "file", a.v.ConfigFileUsed())
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
