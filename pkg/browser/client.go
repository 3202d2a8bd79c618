package browser

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"github.com/matzehuels/diagshot/pkg/endpoint"
	"github.com/matzehuels/diagshot/pkg/errors"
	"github.com/matzehuels/diagshot/pkg/observability"
)

// Options configures browsers launched by a Client.
type Options struct {
	// ExecPath is the Chrome binary. Empty means chromedp's own lookup.
	ExecPath string

	// Flags are extra command-line switches, "name" or "name=value".
	Flags []string
}

// Client hands out browser handles for render jobs.
type Client struct {
	Endpoints endpoint.Store // nil disables attaching
	Options   Options
	Logger    *log.Logger

	// launch starts an owned browser. Tests replace it.
	launch func(ctx context.Context) (*Handle, error)
}

// NewClient creates a client that looks up the shared browser in store.
// The store location is fixed at construction; the client never consults
// the environment.
func NewClient(store endpoint.Store, opts Options, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{Endpoints: store, Options: opts, Logger: logger}
	c.launch = c.Launch
	return c
}

// Close releases the endpoint store. Handles already acquired stay valid.
func (c *Client) Close() error {
	if c.Endpoints == nil {
		return nil
	}
	return c.Endpoints.Close()
}

// Acquire returns a shared handle if the published browser answers, and an
// owned handle on a freshly launched browser otherwise.
func (c *Client) Acquire(ctx context.Context) (*Handle, error) {
	if h, ok := c.TryAttach(ctx); ok {
		return h, nil
	}
	launch := c.launch
	if launch == nil {
		launch = c.Launch
	}
	return launch(ctx)
}

// TryAttach connects to the browser published in the endpoint store.
// Every failure, from a missing record to a dead address, reports false.
func (c *Client) TryAttach(ctx context.Context) (*Handle, bool) {
	addr, err := c.lookup(ctx)
	if err != nil {
		c.skip(ctx, err)
		return nil, false
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, addr, chromedp.NoModifyURL)
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		c.skip(ctx, err)
		return nil, false
	}

	c.Logger.Debug("attached to shared browser", "endpoint", addr)
	observability.Browser().OnAttach(ctx, addr)
	return newHandle(Shared, addr, browserCtx, cancel, allocCancel, c.Logger), true
}

func (c *Client) lookup(ctx context.Context) (string, error) {
	if c.Endpoints == nil {
		return "", endpoint.ErrNotFound
	}
	addr, err := c.Endpoints.Lookup(ctx)
	if err != nil {
		return "", err
	}
	addr = strings.TrimSpace(addr)
	if err := errors.ValidateEndpoint(addr); err != nil {
		return "", err
	}
	return addr, nil
}

func (c *Client) skip(ctx context.Context, reason error) {
	c.Logger.Debug("no shared browser, launching", "reason", reason)
	observability.Browser().OnAttachSkipped(ctx, reason)
}

// Launch starts a private headless browser with the sandbox disabled.
func (c *Client) Launch(ctx context.Context) (*Handle, error) {
	start := time.Now()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	err := chromedp.Run(browserCtx)
	observability.Browser().OnLaunch(ctx, time.Since(start), err)
	if err != nil {
		cancel()
		allocCancel()
		return nil, errors.Wrap(errors.ErrCodeBrowserLaunch, err, "launch headless browser")
	}

	c.Logger.Debug("launched private browser", "duration", time.Since(start))
	return newHandle(Owned, "", browserCtx, cancel, allocCancel, c.Logger), nil
}

func (c *Client) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("no-sandbox", true))
	if c.Options.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.Options.ExecPath))
	}
	for _, f := range c.Options.Flags {
		name, value := ParseFlag(f)
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// ParseFlag splits a command-line switch into a chromedp flag. A bare name
// is a boolean switch; leading dashes are optional.
func ParseFlag(s string) (string, any) {
	s = strings.TrimLeft(strings.TrimSpace(s), "-")
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return name, true
	}
	return name, value
}
