package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/glance"
)

var (
	verbose    bool
	configPath string
	cacheDir   string
	noSandbox  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "glance",
	Short: "Capture a photo, read its text, and leave nothing behind",
	Long: `Glance takes photos through an external grabber, runs OCR on them and
shows the text for a few seconds. Every photo it writes is deleted exactly once,
and a periodic sweep keeps the capture cache empty.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: glance.yaml or glance.toml in the current directory or a parent)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Capture cache directory (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&noSandbox, "no-sandbox", false, "Use the real cache directory even when started with go run")
}

// loadConfig reads --config, or the nearest config file, or the defaults.
func loadConfig() (glance.Config, error) {
	path := configPath
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return glance.Config{}, err
		}
		found, err := glance.FindConfig(cwd)
		if errors.Is(err, glance.ErrConfigNotFound) {
			return glance.Config{}, nil
		}
		if err != nil {
			return glance.Config{}, err
		}
		path = found
	}

	slog.Debug("loading config", "path", path)
	return glance.LoadConfig(path)
}

// sessionOptions merges the config file with the global flags. extra wins.
func sessionOptions(extra ...glance.Option) ([]glance.Option, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options(slog.Default())
	if err != nil {
		return nil, err
	}

	opts = append(opts, glance.WithLogger(slog.Default()))
	if cacheDir != "" {
		opts = append(opts, glance.WithCacheDir(cacheDir))
	}
	if noSandbox {
		opts = append(opts, glance.WithDevSafety(false))
	}
	return append(opts, extra...), nil
}
