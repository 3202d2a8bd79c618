package browser

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Mode records who is responsible for terminating a browser.
type Mode int

const (
	// Shared browsers belong to the broker and outlive the job.
	Shared Mode = iota + 1
	// Owned browsers were launched by the job and die with its handle.
	Owned
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Owned:
		return "owned"
	}
	return "unknown"
}

// Handle is a live connection to a browser.
type Handle struct {
	mode     Mode
	endpoint string
	logger   *log.Logger

	ctx         context.Context // first chromedp context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	once sync.Once
}

func newHandle(mode Mode, endpoint string, ctx context.Context, cancel, allocCancel context.CancelFunc, logger *log.Logger) *Handle {
	if logger == nil {
		logger = log.Default()
	}
	return &Handle{
		mode:        mode,
		endpoint:    endpoint,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
}

// Mode returns whether the handle is shared or owned.
func (h *Handle) Mode() Mode { return h.mode }

// Endpoint returns the DevTools address of a shared browser, or "" for an
// owned one.
func (h *Handle) Endpoint() string { return h.endpoint }

// NewPage opens a fresh tab. The deadline and cancellation of ctx apply to
// every action run on the page; the tab itself lives until Page.Close.
func (h *Handle) NewPage(ctx context.Context) (*Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(h.ctx)

	runCtx, runCancel := context.WithCancel(tabCtx)
	if deadline, ok := ctx.Deadline(); ok {
		runCancel()
		runCtx, runCancel = context.WithDeadline(tabCtx, deadline)
	}
	stop := context.AfterFunc(ctx, runCancel)

	p := &Page{ctx: runCtx, cancel: func() {
		stop()
		runCancel()
		tabCancel()
	}}

	// The first Run creates the target.
	if err := chromedp.Run(tabCtx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Release gives up the handle. A shared handle closes the tab it opened
// while attaching and drops the websocket connection; an owned handle asks
// the browser to close and kills it if it does not. Release is safe to call
// more than once.
func (h *Handle) Release() {
	h.once.Do(func() {
		if h.ctx == nil {
			return
		}
		switch h.mode {
		case Shared:
			h.closeAttachTarget()
			h.cancel()
			h.allocCancel()
		case Owned:
			if err := chromedp.Cancel(h.ctx); err != nil {
				h.logger.Debug("graceful browser close failed", "error", err)
			}
			h.cancel()
			h.allocCancel()
		}
	})
}

// closeAttachTarget closes the tab chromedp opens on its first Run against
// a remote browser. Cancelling that context alone would leave it open.
func (h *Handle) closeAttachTarget() {
	c := chromedp.FromContext(h.ctx)
	if c == nil || c.Browser == nil || c.Target == nil {
		return
	}
	err := target.CloseTarget(c.Target.TargetID).Do(cdp.WithExecutor(h.ctx, c.Browser))
	if err != nil {
		h.logger.Debug("close attach tab", "error", err)
	}
}

// Page is a single browser tab.
type Page struct {
	ctx    context.Context
	cancel func()
	once   sync.Once
}

// Run executes actions in the tab.
func (p *Page) Run(actions ...chromedp.Action) error {
	return chromedp.Run(p.ctx, actions...)
}

// Context returns the chromedp context of the tab.
func (p *Page) Context() context.Context { return p.ctx }

// Close closes the tab and nothing else.
func (p *Page) Close() {
	p.once.Do(p.cancel)
}
