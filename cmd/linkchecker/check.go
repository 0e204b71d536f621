package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/olgkv/linkchecker/internal/app"
	"github.com/olgkv/linkchecker/internal/config"
	"github.com/olgkv/linkchecker/internal/extract"
	"github.com/olgkv/linkchecker/internal/metrics"
	"github.com/olgkv/linkchecker/internal/report"
	"github.com/olgkv/linkchecker/internal/screenshot"
)

type checkOptions struct {
	outDir      string
	metricsFile string
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check [PATH]",
		Short: "Check the links in the .xml files of a directory or in a single file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			if err := applyArchiveFlags(cmd.Flags()); err != nil {
				return err
			}
			if cmd.Flags().Changed("screenshots") {
				on, _ := cmd.Flags().GetBool("screenshots")
				v.Set("screenshot.enabled", on)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runCheck(ctx, cfg, path, opts)
		},
	}

	f := cmd.Flags()
	f.BoolP("archive", "a", false, "archive links whose final status is 2xx")
	f.BoolP("strong-archive", "A", false, "archive every link except those answering 404")
	f.String("archive-mode", "", "archive mode: none, standard or strong")
	f.IntSlice("include", nil, "archive only links with these final status codes")
	f.IntSlice("exclude", nil, "never archive links with these final status codes")
	f.Bool("screenshots", false, "capture reachable pages with a headless browser")
	f.StringVarP(&opts.outDir, "out", "o", ".", "directory for report files")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")
	return cmd
}

func runCheck(ctx context.Context, cfg *config.Config, path string, opts checkOptions) error {
	runID := uuid.NewString()
	runLog := log.With().Str("run_id", runID).Logger()

	rules, err := cfg.ArchiveRules()
	if err != nil {
		return err
	}

	runLog.Info().Str("path", path).Msg("getting files")
	files, err := extract.Files(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .xml files found in %s", path)
	}
	docs, urls, err := extract.ParseAll(files)
	if err != nil {
		return err
	}
	runLog.Info().Int("files", len(files)).Int("links", len(urls)).Msg("links extracted")

	var session *screenshot.Session
	if cfg.Screenshot.Enabled {
		session, err = screenshot.Open(screenshot.Options{
			ChromePath:  cfg.Screenshot.ChromePath,
			PageTimeout: cfg.Screenshot.PageTimeout,
		}, runLog)
		if err != nil {
			return err
		}
		defer func() {
			if err := session.Close(); err != nil {
				runLog.Warn().Err(err).Msg("close browser")
			}
		}()
	}

	reg := prometheus.NewRegistry()
	svc, _, err := app.NewService(cfg, metrics.New(reg), runLog)
	if err != nil {
		return err
	}

	verdicts, summary, err := svc.Audit(ctx, urls, rules)
	if err != nil {
		return err
	}

	runLog.Info().Str("dir", opts.outDir).Msg("writing status reports")
	all, broken := report.ByDocument(docs, verdicts)
	if err := report.WriteAll(opts.outDir, runID, all, broken); err != nil {
		return err
	}
	report.PrintSummary(os.Stdout, verdicts, summary)

	if session != nil {
		dir := cfg.Screenshot.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(opts.outDir, dir)
		}
		if _, err := screenshot.Grab(ctx, session, verdicts, dir, runLog); err != nil {
			return err
		}
	}

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		runLog.Warn().Msg("run interrupted; unfinished links are reported as transport failures")
	}
	return nil
}
