package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subtrans/internal/cache"
)

func newCacheCommand(cctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the translation cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(cctx))
	cacheCmd.AddCommand(newCacheClearCommand(cctx))
	return cacheCmd
}

func openStore(cctx *commandContext) (*cache.Store, error) {
	cfg, _, err := cctx.ensure()
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.Cache.Path)
}

func newCacheStatsCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show translation cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cctx)
			if err != nil {
				return err
			}
			defer store.Close()
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:    %s\n", humanBytes(stats.FileBytes))
			fmt.Fprintf(out, "Path:    %s\n", store.Path())
			return nil
		},
	}
}

func newCacheClearCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cctx)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", n)
			return nil
		},
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
