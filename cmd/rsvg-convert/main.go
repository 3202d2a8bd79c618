// Command rsvg-convert is a drop-in replacement for librsvg's converter that
// rasterizes SVG with headless Chrome. It reads SVG on stdin and writes PNG
// on stdout, accepting the flags pandoc passes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/diagshot/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context) int {
	c := cli.New(os.Stderr, cli.LogInfo)
	err := c.RSVGConvertCommand().ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if ctx.Err() != nil {
		return 130
	}
	c.PrintError(err)
	return cli.ExitCode(err)
}
