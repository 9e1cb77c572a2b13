package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// DefaultWatchPatterns covers every channel the services publish on.
var DefaultWatchPatterns = []string{"post:*", "chat:conv:*", "notifications:user:*"}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	patterns := append([]string(nil), DefaultWatchPatterns...)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print change events as they are published",
		Long: `Subscribe to the Redis change-event channels and print each event until
interrupted. Requires EVENTS_ENABLED and a reachable REDIS_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := rootOpts.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			if !rt.Events.Enabled() {
				return NewExitError(ExitCommandError, "events are disabled: set EVENTS_ENABLED and REDIS_URL")
			}

			out := cmd.OutOrStdout()
			err = rt.Events.Subscribe(ctx, patterns, func(channel, payload string) {
				if rootOpts.Format == "json" {
					fmt.Fprintln(out, payload)
					return
				}
				fmt.Fprintf(out, "%s %s\n", channel, payload)
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "subscribe failed", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %v\n", patterns)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "pattern", patterns, "channel pattern to subscribe to (repeatable)")
	return cmd
}
