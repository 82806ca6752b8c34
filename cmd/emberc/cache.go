package main

import (
	"context"
	"fmt"

	"github.com/emberscript/emberc/pkg/artifactstore"
	"github.com/spf13/cobra"
)

// newCacheCmd builds "emberc cache ...": inspection commands over the
// durable artifact store. The in-process LRU (pkg/cache) only lives for
// the duration of a single "compile" or "watch" invocation, so the only
// cache worth reporting on across invocations is the configured
// artifactstore backend.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the durable artifact cache",
	}
	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "List cached artifact keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := artifactstore.Open(ctx, artifactstore.Config{
				Backend: cfg.Artifacts.Backend,
				DSN:     cfg.Artifacts.DSN,
			})
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			defer store.Close()

			keys, err := store.List(ctx, "")
			if err != nil {
				return fmt.Errorf("list artifacts: %w", err)
			}

			printInfo(fmt.Sprintf("%s backend: %d cached artifact(s)", cfg.Artifacts.Backend, len(keys)))
			for _, k := range keys {
				a, err := store.Get(ctx, k)
				if err != nil {
					printWarning(fmt.Sprintf("%s: %s", k, err))
					continue
				}
				fmt.Printf("  %s  %-24s  compiled %s\n", a.Key, a.UnitName, a.CompiledAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := artifactstore.Open(ctx, artifactstore.Config{
				Backend: cfg.Artifacts.Backend,
				DSN:     cfg.Artifacts.DSN,
			})
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			defer store.Close()

			keys, err := store.List(ctx, "")
			if err != nil {
				return fmt.Errorf("list artifacts: %w", err)
			}
			for _, k := range keys {
				if err := store.Delete(ctx, k); err != nil {
					printWarning(fmt.Sprintf("delete %s: %s", k, err))
				}
			}
			printSuccess(fmt.Sprintf("cleared %d artifact(s)", len(keys)))
			return nil
		},
	}
}
