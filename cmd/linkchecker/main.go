package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olgkv/linkchecker/internal/config"
	"github.com/olgkv/linkchecker/internal/logger"
)

var (
	cfgFile string
	v       = viper.New()
	log     = zerolog.Nop()
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "linkchecker",
	Short:         "Check, archive and screenshot the links in OU-XML course documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.String("log-file", "", "also write logs to this file, rotated by size")
	pf.Int("max-workers", 16, "concurrent link checks")
	pf.Int("max-redirects", 10, "redirects followed per link")
	pf.Duration("timeout", 0, "per-request timeout (default from HTTP_TIMEOUT)")

	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.format", pf.Lookup("log-format"))
	mustBind("log.file", pf.Lookup("log-file"))
	mustBind("max_workers", pf.Lookup("max-workers"))
	mustBind("max_redirects", pf.Lookup("max-redirects"))
	mustBind("http_timeout", pf.Lookup("timeout"))

	rootCmd.AddCommand(newCheckCmd(), newServeCmd())
}

// loadConfig reads the configuration and builds the process logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	l, closer, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, err
	}
	log, logFile = l, closer
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
