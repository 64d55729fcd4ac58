package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamtap/internal/channel"
)

var (
	runChatID    string
	runShowStats bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run the agent tool loop on a prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			console := channel.NewConsole(os.Stdout)
			res, err := a.Ask(cmd.Context(), runChatID, strings.Join(args, " "), console.Render)
			if res.Cached {
				fmt.Fprintln(os.Stderr, "(cached)")
			}
			printSummary(res)
			return err
		})
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream <prompt>",
	Short: "Stream a single completion without tools",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			console := channel.NewConsole(os.Stdout)
			res, err := a.Stream(cmd.Context(), strings.Join(args, " "), console.Render)
			printSummary(res)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd, streamCmd)
	runCmd.Flags().StringVar(&runChatID, "chat", "cli", "Conversation ID used for history")
	for _, c := range []*cobra.Command{runCmd, streamCmd} {
		c.Flags().BoolVar(&runShowStats, "stats", false, "Print per-observer queue statistics")
	}
}

func printSummary(res RunResult) {
	m := res.Metrics
	if m.Messages == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%d events · %d tool calls (%d failed) · $%.4f · %s\n",
		m.Messages, m.ToolCalls, m.ToolErrors, m.CostUSD, m.Duration.Round(time.Millisecond))
	if !runShowStats {
		return
	}
	for _, s := range res.Stats {
		fmt.Fprintf(os.Stderr, "  %-16s %-10s received=%d dropped=%d\n", s.Name, s.State, s.Received, s.Dropped)
	}
}
