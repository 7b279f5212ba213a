// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the adlibrary CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/adlibrary/internal/logging"
	"github.com/pdiddy/adlibrary/internal/secrets"
	"github.com/pdiddy/adlibrary/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds one file per credential.
const secretsDir = ".secrets/"

var (
	// loadedSecrets holds credentials loaded from .secrets/ at startup.
	loadedSecrets secrets.Set

	// logger is built from the logging config before any command runs.
	logger = zap.NewNop()
)

// rootCmd is the base command for the adlibrary CLI.
var rootCmd = &cobra.Command{
	Use:   "adlibrary",
	Short: "Reconcile a user's analysis reports into one library",
	Long: `adlibrary builds a user's analysis library from the three stores that
hold analysis artifacts: the artifact store, the legacy file metadata store,
and the analysis history log. Records describing the same analysis are merged,
records without a report or preview are hidden, and duplicates are removed.

Run "adlibrary reconcile --user ID" for a one-off listing or "adlibrary serve"
to expose the library over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		l, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(secretsDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if names := s.Names(); len(names) > 0 {
			logger.Debug("loaded secrets", zap.Strings("keys", names))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./adlibrary.yaml or ~/.config/adlibrary/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	setDefaults(viper.GetViper(), types.DefaultConfig())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("adlibrary")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "adlibrary"))
		}
	}

	viper.SetEnvPrefix("ADLIBRARY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so AutomaticEnv can override
// keys that appear in no config file.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("sources.timeout", d.Sources.Timeout)
	v.SetDefault("sources.user_agent", d.Sources.UserAgent)
	v.SetDefault("sources.base_url", d.Sources.BaseURL)
	v.SetDefault("sources.api_token", d.Sources.APIToken)
	v.SetDefault("sources.rate_limit", d.Sources.RateLimit)
	v.SetDefault("sources.max_retries", d.Sources.MaxRetries)
	v.SetDefault("sources.fixtures_dir", d.Sources.FixturesDir)
	v.SetDefault("reconcile.match_window", d.Reconcile.MatchWindow)
	v.SetDefault("cache.backend", string(d.Cache.Backend))
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.subject", d.NATS.Subject)
	v.SetDefault("serve.addr", d.Serve.Addr)
}

// loadConfig decodes the merged viper settings.
func loadConfig() (types.Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
