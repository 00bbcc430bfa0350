package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/httputil"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the run, render and remote file caches",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var redisCfg cache.RedisConfig

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached runs, renders and remote city files",
		Long: `Clear cached runs, renders and remote city files.

With --redis, the server's Redis cache is cleared instead of the local one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if redisCfg.Addr != "" {
				rc, err := cache.NewRedisCache(cmd.Context(), redisCfg)
				if err != nil {
					return fmt.Errorf("connect redis: %w", err)
				}
				defer rc.Close()
				n, err := rc.Clear(cmd.Context())
				if err != nil {
					return err
				}
				printSuccess("Cleared %d cached entries", n)
				printDetail("Redis: %s", redisCfg.Addr)
				return nil
			}

			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			runs, err := cache.NewFileCache(filepath.Join(dir, "runs"))
			if err != nil {
				return err
			}
			n, err := runs.Clear()
			if err != nil {
				return err
			}
			remote, err := httputil.NewCache(filepath.Join(dir, "remote"), remoteTTL)
			if err != nil {
				return err
			}
			m, err := remote.Clear()
			if err != nil {
				return err
			}

			if n+m == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", n+m)
			printDetail("Directory: %s", dir)
			return nil
		},
	}

	addRedisFlags(cmd.Flags(), &redisCfg)
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
