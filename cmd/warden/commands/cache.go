package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wardenscan/warden/internal/cache"
	"github.com/wardenscan/warden/internal/config"
)

func newCacheCommand(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "inspect or clear the content-addressed analysis cache",
	}

	cmd.AddCommand(newCacheStatsCommand(global), newCacheClearCommand(global))

	return cmd
}

func newCacheStatsCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "print cache entry count and size on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger(global)

			c := cache.New(logger)
			if cfg.Cache.Path != "" {
				c.Load(cfg.Cache.Path)
			}

			stats := c.Stats()

			size := int64(0)
			if info, err := os.Stat(cfg.Cache.Path); err == nil {
				size = info.Size()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "entries=%d hits=%d misses=%d size=%s path=%s\n",
				c.Len(), stats.Hits, stats.Misses, humanize.Bytes(uint64(size)), cfg.Cache.Path)

			return nil
		},
	}
}

func newCacheClearCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "delete the on-disk cache file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if cfg.Cache.Path == "" {
				return nil
			}

			if err := os.Remove(cfg.Cache.Path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove cache file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cache cleared: %s\n", cfg.Cache.Path)

			return nil
		},
	}
}
