package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenscan/warden/internal/config"
	"github.com/wardenscan/warden/internal/finding"
	"github.com/wardenscan/warden/internal/telemetry"
	"github.com/wardenscan/warden/internal/walk"
)

type runFlags struct {
	output          string
	outputFile      string
	noColor         bool
	watch           bool
	reviewQueuePath string
	failOn          string
}

func newRunCommand(global *globalFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "scan one or more paths and report findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, global, flags)
		},
	}

	cmd.Flags().StringVar(&flags.output, "output", "table", "output format: table or json")
	cmd.Flags().StringVar(&flags.outputFile, "output-file", "", "write the report here instead of stdout")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored table output")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "re-scan on file changes instead of exiting after one run")
	cmd.Flags().StringVar(&flags.reviewQueuePath, "review-queue", "./results/review-queue.yaml", "path to the persisted review queue")
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "", "exit non-zero if any finding meets or exceeds this severity (critical, high, medium, low, info)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, global *globalFlags, flags *runFlags) error {
	logger := newLogger(global)

	cfg, err := config.Load(global.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if len(args) > 0 {
		cfg.General.Paths = args
	}

	if len(cfg.General.Paths) == 0 {
		cfg.General.Paths = []string{"."}
	}

	providers, err := telemetry.Init(telemetry.Config{ServiceName: "warden", MetricsAddr: global.metricsAddr})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	orch, queue, err := buildOrchestrator(cfg, flags.reviewQueuePath, logger)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// runOnce always returns a usable report when orch.Run does, even if it
	// also returns a non-nil error (e.g. a cache persist failure) — the scan
	// itself succeeded and its findings are still worth emitting.
	runOnce := func() (*finding.Report, error) {
		start := time.Now()

		report, runErr := orch.Run(ctx, cfg)

		if report != nil && providers.Metrics != nil {
			providers.Metrics.RecordScan(ctx, report.Summary.FilesScanned, time.Since(start))
		}

		if err := os.MkdirAll(filepath.Dir(flags.reviewQueuePath), 0o755); err != nil {
			logger.Warn("create review queue dir failed", "error", err)
		} else if err := queue.Persist(flags.reviewQueuePath); err != nil {
			logger.Warn("persist review queue failed", "error", err)
		}

		return report, runErr
	}

	report, err := runOnce()
	if report == nil && err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if emitErr := emitReport(cmd, report, flags); emitErr != nil {
		return emitErr
	}

	if flags.watch {
		return walk.Watch(ctx, cfg.General.Paths, logger, func() {
			report, err := runOnce()
			if report == nil && err != nil {
				logger.Error("rescan failed", "error", err)

				return
			}

			if emitErr := emitReport(cmd, report, flags); emitErr != nil {
				logger.Error("emit report failed", "error", emitErr)
			}
		})
	}

	if err != nil {
		return err
	}

	return checkFailOn(report, flags.failOn)
}

// emitReport writes report to flags.outputFile (or stdout) in the
// requested format.
func emitReport(cmd *cobra.Command, report *finding.Report, flags *runFlags) error {
	out := cmd.OutOrStdout()

	if flags.outputFile != "" {
		f, err := os.Create(flags.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()

		out = f
	}

	if flags.output == "json" {
		return renderJSON(out, report)
	}

	renderTable(out, report, flags.noColor)

	return nil
}

func checkFailOn(report *finding.Report, failOn string) error {
	if failOn == "" {
		return nil
	}

	threshold, err := finding.ParseSeverity(failOn)
	if err != nil {
		return fmt.Errorf("fail-on: %w", err)
	}

	for _, f := range report.Findings {
		if f.Severity <= threshold {
			return fmt.Errorf("findings at or above severity %s present", threshold)
		}
	}

	return nil
}
