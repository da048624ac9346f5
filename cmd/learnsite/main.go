// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the learnsite CLI.
//
// learnsite turns PDF textbook chapters into interactive study pages
// (concepts, multiple-choice and subjective questions), keeps an index page
// current while chapters are processed in parallel, and publishes the site
// to a static-pages branch.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/learnsite/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys and tokens loaded from .secrets/ at startup.
var loadedSecrets *secrets.Store

// rootCmd is the base command for the learnsite CLI.
var rootCmd = &cobra.Command{
	Use:   "learnsite",
	Short: "Generate and publish interactive study pages from PDF chapters",
	Long: `learnsite reads PDF textbook chapters, asks a language model for key
concepts, multiple-choice questions, and subjective questions with model
answers, and renders one interactive HTML page per chapter plus an index.

Chapters are processed in parallel. The index page is rewritten after
every chapter so it can be opened while a run is in progress. When the run
finishes the site is pushed to a static-pages branch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(viper.GetString("log.level"), viper.GetString("log.format"))

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./learnsite.yaml or ~/.config/learnsite/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	setDefaults(viper.GetViper())
}

func initConfig() {
	// .env supplies API keys and tokens; variables already set win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("learnsite")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "learnsite"))
		}
	}

	viper.SetEnvPrefix("LEARNSITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupLogging installs the default slog logger. Status lines go to stdout;
// structured logs go to stderr.
func setupLogging(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
