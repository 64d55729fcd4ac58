// Command streamtap runs LLM agent turns and fans every event out to
// independent observers without slowing down the caller.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "streamtap",
	Short: "Tap agent event streams without blocking them",
	Long: `streamtap runs an LLM agent and passes each event it produces to the
caller first, then to a set of observers (metrics, cache, transcript,
event bus, Telegram relay) that each drain their own queue.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.streamtap/config.json, .yaml also accepted)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// withApp builds an App for one command and closes it afterwards.
func withApp(fn func(a *App) error) error {
	a, err := NewApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close:", err)
		}
	}()
	return fn(a)
}
