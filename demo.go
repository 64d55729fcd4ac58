package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"streamtap/internal/agent"
	"streamtap/internal/intercept"
)

var (
	demoEvents   int
	demoInterval time.Duration
	demoLag      time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show that a slow observer does not delay the caller",
	Long: `demo feeds synthetic events through the interceptor with one slow
observer attached. The caller's timeline stays on the source's pace while
the slow observer catches up afterwards. No API key is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntVar(&demoEvents, "events", 5, "Number of events to emit")
	demoCmd.Flags().DurationVar(&demoInterval, "interval", 50*time.Millisecond, "Delay between source events")
	demoCmd.Flags().DurationVar(&demoLag, "lag", 200*time.Millisecond, "Time the slow observer spends per event")
}

func runDemo(ctx context.Context) error {
	start := time.Now()
	since := func() time.Duration { return time.Since(start).Round(time.Millisecond) }

	slow := &slowObserver{lag: demoLag, since: since}
	buf := intercept.NewBuffer[agent.Event]()
	st := intercept.New[agent.Event]().Intercept(ctx, tickSource(demoEvents, demoInterval), slow, buf)

	for ev, err := range st.All() {
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%8s caller   got %s\n", since(), ev.Text)
	}
	fmt.Fprintf(os.Stdout, "%8s caller   done\n", since())

	if err := st.Wait(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%8s observers done (buffer holds %d events)\n", since(), buf.Len())
	return nil
}

// tickSource yields n text deltas, one every interval, then a result.
func tickSource(n int, interval time.Duration) intercept.Source[agent.Event] {
	return func(yield func(agent.Event, error) bool) {
		for i := 1; i <= n; i++ {
			time.Sleep(interval)
			if !yield(agent.Event{Kind: agent.KindTextDelta, Text: fmt.Sprintf("event %d", i)}, nil) {
				return
			}
		}
		yield(agent.Event{Kind: agent.KindResult, Text: "result", StopReason: agent.StopEndTurn}, nil)
	}
}

type slowObserver struct {
	lag   time.Duration
	since func() time.Duration
}

func (s *slowObserver) Name() string { return "slow" }

func (s *slowObserver) Receive(ctx context.Context, ev agent.Event) error {
	select {
	case <-time.After(s.lag):
	case <-ctx.Done():
		return ctx.Err()
	}
	fmt.Fprintf(os.Stdout, "%8s observer saw %s\n", s.since(), ev.Text)
	return nil
}

func (s *slowObserver) OnComplete(context.Context) {
	fmt.Fprintf(os.Stdout, "%8s observer complete\n", s.since())
}

func (s *slowObserver) OnError(_ context.Context, err error) {
	fmt.Fprintf(os.Stdout, "%8s observer error: %v\n", s.since(), err)
}
