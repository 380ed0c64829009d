package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wardenscan/warden/internal/config"
	"github.com/wardenscan/warden/internal/retention"
)

func newRetentionCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "retention",
		Short: "prune the on-disk report archive by age, size, and integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetention(cmd, global)
		},
	}
}

func runRetention(cmd *cobra.Command, global *globalFlags) error {
	cfg, err := config.Load(global.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !cfg.Retention.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "retention disabled, nothing to do")

		return nil
	}

	release, err := retention.AcquireLock(cfg.Retention.ResultsDir)
	if err != nil {
		return fmt.Errorf("acquire retention lock: %w", err)
	}
	defer release()

	policy := retention.Policy{
		ResultsDir:          cfg.Retention.ResultsDir,
		BackupDir:           cfg.Retention.BackupDir,
		MaxAge:              cfg.Retention.MaxAge,
		MinResultsToKeep:    cfg.Retention.MinResultsToKeep,
		MaxTotalSizeBytes:   cfg.Retention.MaxTotalSize,
		IntegrityReportPath: cfg.Retention.IntegrityReportPath,
	}

	report, err := retention.Run(policy)
	if err != nil {
		return fmt.Errorf("run retention: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scanned %d report files\n", report.TotalFiles)
	fmt.Fprintf(out, "deleted by age: %d\n", len(report.AgeDeleted))
	fmt.Fprintf(out, "deleted by size cap (%s): %d\n", humanize.Bytes(uint64(cfg.Retention.MaxTotalSize)), len(report.SizeDeleted))
	fmt.Fprintf(out, "quarantined (corrupt digest): %d\n", len(report.Quarantined))

	for _, path := range report.CorruptedFiles {
		fmt.Fprintf(out, "  corrupt: %s\n", path)
	}

	return nil
}
