package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured LLM provider answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			if err := a.initAgent(); err != nil {
				return err
			}
			start := time.Now()
			if err := a.agent.TestConnection(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", a.agent.Provider().Name(), err)
			}
			fmt.Printf("%s/%s answered in %s\n", a.agent.Provider().Name(), a.cfg.LLM.Model,
				time.Since(start).Round(time.Millisecond))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
