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
	err := c.RootCommand().ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if ctx.Err() != nil {
		return 130 // Standard shell convention for SIGINT
	}
	c.PrintError(err)
	return cli.ExitCode(err)
}
