package raster

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/matzehuels/diagshot/pkg/errors"
)

// Transparent is the background mode that leaves an alpha channel.
const Transparent = "transparent"

// measureViewport is the provisional viewport used while the document lays
// out for measurement.
const measureViewport = 4096

// Runner executes chromedp actions against one tab.
type Runner interface {
	Run(actions ...chromedp.Action) error
}

// Options configures a rasterization.
type Options struct {
	DPIX       float64
	DPIY       float64
	Background string // "transparent" or a CSS colour
}

// IsTransparent reports whether the capture keeps an alpha channel.
func (o Options) IsTransparent() bool {
	return o.Background == "" || o.Background == Transparent
}

// Rasterize loads svg into the tab, resolves its size and captures a PNG.
func Rasterize(tab Runner, svg []byte, opts Options) ([]byte, Resolution, error) {
	if !opts.IsTransparent() {
		if err := errors.ValidateBackground(opts.Background); err != nil {
			return nil, Resolution{}, err
		}
	}

	var res Resolution
	err := tab.Run(
		emulation.SetDeviceMetricsOverride(measureViewport, measureViewport, 1, false),
		SetContent(wrapSVG(svg, opts)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			snap, err := TakeSnapshot(ctx)
			if err != nil {
				return err
			}
			res, err = ResolveSize(snap)
			return err
		}),
	)
	if err != nil {
		return nil, Resolution{}, err
	}

	png, err := Capture(tab, res.Size, opts)
	if err != nil {
		return nil, res, err
	}
	return png, res, nil
}

// Capture resizes the viewport to size at the oversampled device pixel ratio,
// waits one animation frame for layout to settle and screenshots the viewport.
func Capture(tab Runner, size Size, opts Options) ([]byte, error) {
	scale := DeviceScaleFactor(opts.DPIX, opts.DPIY)

	var buf []byte
	actions := []chromedp.Action{
		emulation.SetDeviceMetricsOverride(int64(size.Width), int64(size.Height), scale, false),
	}
	if opts.IsTransparent() {
		actions = append(actions, transparentBackground())
	}
	actions = append(actions, AwaitAnimationFrame(), screenshot{out: &buf})

	if err := tab.Run(actions...); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "capture %dx%d at scale %g", size.Width, size.Height, scale)
	}
	return buf, nil
}

// transparentBackground makes the default page background fully transparent.
// Opaque captures leave the page to paint its own background.
func transparentBackground() *emulation.SetDefaultBackgroundColorOverrideParams {
	return emulation.SetDefaultBackgroundColorOverride().
		WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0})
}

// screenshot captures the viewport as PNG into out.
type screenshot struct {
	out *[]byte
}

func (s screenshot) Do(ctx context.Context) error {
	buf, err := page.CaptureScreenshot().
		WithFormat(page.CaptureScreenshotFormatPng).
		Do(ctx)
	if err != nil {
		return err
	}
	*s.out = buf
	return nil
}

// SetContent replaces the document of the tab's main frame with html and
// waits for the load to complete, including images and style sheets.
func SetContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("get frame tree: %w", err)
		}
		if err := page.SetDocumentContent(tree.Frame.ID, html).Do(ctx); err != nil {
			return fmt.Errorf("set document content: %w", err)
		}
		return waitComplete(ctx)
	})
}

func waitComplete(ctx context.Context) error {
	for {
		var state string
		if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
			return fmt.Errorf("read ready state: %w", err)
		}
		if state == "complete" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// AwaitAnimationFrame resolves after the next requestAnimationFrame callback.
func AwaitAnimationFrame() chromedp.Action {
	return animationFrame{}
}

type animationFrame struct{}

func (animationFrame) Do(ctx context.Context) error {
	var ok bool
	return chromedp.Evaluate(
		`new Promise(resolve => requestAnimationFrame(() => resolve(true)))`,
		&ok,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	).Do(ctx)
}

// wrapSVG builds the measurement page around the raw SVG markup.
func wrapSVG(svg []byte, opts Options) string {
	style := "margin:0"
	if !opts.IsTransparent() {
		style += ";background:" + opts.Background
	}
	return `<html><body style="` + style + `">` + string(svg) + `</body></html>`
}
