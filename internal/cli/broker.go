package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagshot/pkg/broker"
	"github.com/matzehuels/diagshot/pkg/browser"
	"github.com/matzehuels/diagshot/pkg/endpoint"
	"github.com/matzehuels/diagshot/pkg/errors"
)

// brokerCommand creates the broker command, which keeps one browser alive
// until it is signalled.
func (c *CLI) brokerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "broker <endpoint-file>",
		Short: "Run a shared headless browser for a build",
		Long: `Launch a headless browser, publish its DevTools address to <endpoint-file>
(a file path or a redis:// URL) and keep it running until SIGINT or SIGTERM.

Render commands that find the record attach to this browser instead of
launching their own. The record is removed when the broker stops.

Exit status: 0 after a signal, 1 if the browser exits on its own,
2 if the browser cannot be started or the record cannot be written.`,
		Example: `  diagshot broker /tmp/build/ws-endpoint &
  DIAGSHOT_ENDPOINT_FILE=/tmp/build/ws-endpoint pandoc ...
  kill %1`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return withExit(2, errors.New(errors.ErrCodeMissingFlag, "usage: diagshot broker <endpoint-file>"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBroker(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runBroker(ctx context.Context, location string) error {
	store, err := endpoint.Open(location)
	if err != nil {
		return withExit(2, errors.Wrap(errors.ErrCodeInvalidPath, err, "endpoint %s", location))
	}
	defer store.Close()

	b := broker.New(c.launcher(), store, c.Logger)
	prog := newProgress(c.Logger)
	reason, err := b.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted while starting: nothing was published.
			return nil
		}
		return withExit(reason.ExitCode(), err)
	}

	c.Logger.Info("broker stopped", "reason", reason, "uptime", prog.elapsed())
	if reason != broker.ReasonSignal {
		return withExit(reason.ExitCode(), errors.New(errors.ErrCodeInternal, "browser exited unexpectedly (%s)", reason))
	}
	return nil
}

// launcher returns the broker's browser launcher.
func (c *CLI) launcher() broker.Launcher {
	if c.Launcher != nil {
		return c.Launcher
	}
	pl := &browser.ProcessLauncher{
		ExecPath:     c.cfg.Browser.ExecPath,
		Flags:        c.cfg.Browser.Flags,
		StartTimeout: c.cfg.Browser.LaunchTimeout.Duration,
		CloseTimeout: c.cfg.Browser.CloseTimeout.Duration,
		Logger:       c.Logger,
	}
	return broker.LauncherFunc(func(ctx context.Context) (broker.Process, error) {
		p, err := pl.Launch(ctx)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}
