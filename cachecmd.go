package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeExpired bool

// expiredPurger is implemented by stores that keep expired rows until asked.
type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the run cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of cached runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			store, err := a.openCache(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Println("Cache is disabled.")
				return nil
			}
			stats := store.Stats(cmd.Context())
			fmt.Printf("backend: %s\nentries: %d\n", backendName(a), stats.Entries)
			return nil
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached runs (all, or only expired ones with --expired)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			store, err := a.openCache(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Println("Cache is disabled.")
				return nil
			}
			purge := store.Purge
			if purgeExpired {
				p, ok := store.(expiredPurger)
				if !ok {
					fmt.Printf("The %s backend expires entries itself.\n", backendName(a))
					return nil
				}
				purge = p.PurgeExpired
			}
			n, err := purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			fmt.Printf("Removed %d cached runs.\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)
	cachePurgeCmd.Flags().BoolVar(&purgeExpired, "expired", false, "Only remove entries past their TTL")
}

func backendName(a *App) string {
	if a.cfg.Cache.Backend == "" {
		return "sqlite"
	}
	return a.cfg.Cache.Backend
}
