// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2txt CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is shared by every subcommand and configured from --log-level.
var logger = logrus.New()

// rootCmd is the base command for the pdf2txt CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf2txt",
	Short: "Convert batches of PDF files to plain text",
	Long: `pdf2txt extracts the text of PDF files into UTF-8 .txt files, one per
input, written to a single output directory. Inputs are processed in order on
one background worker; a failed file is reported and the batch moves on.

Past batches are kept in a local history database that the history
subcommand lists and inspects.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configureLogger(viper.GetString("log_level"))
		if f := viper.ConfigFileUsed(); f != "" {
			logger.WithField("file", f).Debug("Using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2txt.yaml or ~/.config/pdf2txt/pdf2txt.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("history", defaultHistoryPath(), "history database path (empty disables history)")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("history", rootCmd.PersistentFlags().Lookup("history"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2txt")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2txt"))
		}
	}

	viper.SetEnvPrefix("PDF2TXT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// configureLogger applies level to the shared logger. Unknown levels fall
// back to warn.
func configureLogger(level string) {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.WarnLevel
	}
	logger.SetLevel(lvl)
}

// defaultHistoryPath returns ~/.local/share/pdf2txt/history.db, or an empty
// path when the home directory is unknown.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "pdf2txt", "history.db")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
