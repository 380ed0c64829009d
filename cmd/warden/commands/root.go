package commands

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wardenscan/warden/internal/telemetry"
)

// globalFlags holds the persistent flags every subcommand reads, mirroring
// the teacher's pattern of binding cobra flags into a plain struct rather
// than threading viper through the command tree a second time.
type globalFlags struct {
	configPath  string
	logLevel    string
	logJSON     bool
	metricsAddr string
}

// NewRoot builds the warden root command with every subcommand attached.
func NewRoot() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "warden",
		Short:         "warden scans source trees for conflict markers, duplication, typos, and complexity hot spots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a warden.yaml config file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", true, "emit logs as JSON instead of text")
	root.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")

	root.AddCommand(
		newRunCommand(flags),
		newReviewCommand(flags),
		newRetentionCommand(flags),
		newCacheCommand(flags),
		newVersionCommand(),
	)

	return root
}

// newLogger builds the process logger from the parsed global flags.
func newLogger(flags *globalFlags) *slog.Logger {
	cfg := telemetry.DefaultConfig()
	cfg.LogJSON = flags.logJSON
	cfg.LogLevel = parseLevel(flags.logLevel)

	return telemetry.NewLogger(cfg)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
