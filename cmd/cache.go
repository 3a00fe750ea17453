package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/platform-resolver/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the resolution cache",
}

// cacheAdmin is the cache surface used by the cache subcommands.
type cacheAdmin interface {
	Clear(ctx context.Context) (int64, error)
	Prune(ctx context.Context) (int64, error)
	Status(ctx context.Context) cache.Status
	SetEnabled(ctx context.Context, enabled bool) error
}

// withCache opens the store-backed cache for one subcommand.
func withCache(cmd *cobra.Command, fn func(ctx context.Context, c cacheAdmin) error) error {
	ctx := cmd.Context()
	if err := cfg.Validate(); err != nil {
		return err
	}
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	c, rdb, err := initCache(ctx, st, cfg.Cache)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck
	}
	return fn(ctx, c)
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c cacheAdmin) error {
			return runCacheClear(ctx, c, cmd.OutOrStdout())
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c cacheAdmin) error {
			return runCachePrune(ctx, c, cmd.OutOrStdout())
		})
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the caching toggle, retention and entry count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c cacheAdmin) error {
			return runCacheStatus(ctx, c, cmd.OutOrStdout())
		})
	},
}

var cacheEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn caching on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c cacheAdmin) error {
			return runCacheToggle(ctx, c, true, cmd.OutOrStdout())
		})
	},
}

var cacheDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn caching off",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c cacheAdmin) error {
			return runCacheToggle(ctx, c, false, cmd.OutOrStdout())
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cachePruneCmd, cacheStatusCmd, cacheEnableCmd, cacheDisableCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(ctx context.Context, c cacheAdmin, w io.Writer) error {
	n, err := c.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "cleared %d cache entries\n", n)
	return nil
}

func runCachePrune(ctx context.Context, c cacheAdmin, w io.Writer) error {
	n, err := c.Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "pruned %d expired cache entries\n", n)
	return nil
}

func runCacheStatus(ctx context.Context, c cacheAdmin, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Status(ctx))
}

func runCacheToggle(ctx context.Context, c cacheAdmin, enabled bool, w io.Writer) error {
	if err := c.SetEnabled(ctx, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "caching %s\n", state)
	return nil
}
