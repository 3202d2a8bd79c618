package raster

import (
	stderrors "errors"
	"testing"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/matzehuels/diagshot/pkg/errors"
)

// recordingTab records every batch of actions instead of executing them.
type recordingTab struct {
	batches [][]chromedp.Action
	err     error
}

func (r *recordingTab) Run(actions ...chromedp.Action) error {
	r.batches = append(r.batches, actions)
	return r.err
}

func TestCaptureActions(t *testing.T) {
	tests := []struct {
		name            string
		opts            Options
		wantScale       float64
		wantTransparent bool
	}{
		{"transparent 150dpi", Options{DPIX: 150, DPIY: 96, Background: Transparent}, 4.6875, true},
		{"default background", Options{DPIX: 96, DPIY: 96}, 3, true},
		{"opaque", Options{DPIX: 96, DPIY: 150, Background: "white"}, 4.6875, false},
		{"invalid dpi", Options{DPIX: -1, DPIY: 0, Background: "#fff"}, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab := &recordingTab{}
			if _, err := Capture(tab, Size{Width: 40, Height: 30}, tt.opts); err != nil {
				t.Fatalf("Capture() error = %v", err)
			}
			if len(tab.batches) != 1 {
				t.Fatalf("Run called %d times, want 1", len(tab.batches))
			}
			actions := tab.batches[0]

			metrics, ok := actions[0].(*emulation.SetDeviceMetricsOverrideParams)
			if !ok {
				t.Fatalf("first action = %T, want device metrics override", actions[0])
			}
			if metrics.Width != 40 || metrics.Height != 30 {
				t.Errorf("viewport = %dx%d, want 40x30", metrics.Width, metrics.Height)
			}
			if !approx(metrics.DeviceScaleFactor, tt.wantScale) {
				t.Errorf("DeviceScaleFactor = %v, want %v", metrics.DeviceScaleFactor, tt.wantScale)
			}
			if metrics.Mobile {
				t.Error("Mobile = true, want false")
			}

			var override *emulation.SetDefaultBackgroundColorOverrideParams
			frameAt, shotAt := -1, -1
			for i, a := range actions {
				switch v := a.(type) {
				case *emulation.SetDefaultBackgroundColorOverrideParams:
					override = v
				case animationFrame:
					frameAt = i
				case screenshot:
					shotAt = i
				}
			}
			if (override != nil) != tt.wantTransparent {
				t.Fatalf("background override present = %v, want %v", override != nil, tt.wantTransparent)
			}
			if override != nil && (override.Color == nil || override.Color.A != 0) {
				t.Errorf("override colour = %+v, want alpha 0", override.Color)
			}
			if frameAt < 0 || shotAt < 0 {
				t.Fatalf("frame wait at %d, screenshot at %d; both must be present", frameAt, shotAt)
			}
			if frameAt >= shotAt || shotAt != len(actions)-1 {
				t.Errorf("frame wait at %d, screenshot at %d of %d; want frame wait then screenshot last", frameAt, shotAt, len(actions))
			}
		})
	}
}

func TestCaptureError(t *testing.T) {
	tab := &recordingTab{err: stderrors.New("target closed")}
	_, err := Capture(tab, Size{Width: 1, Height: 1}, Options{})
	if !errors.Is(err, errors.ErrCodeRender) {
		t.Errorf("Capture() error = %v, want RENDER_FAILED", err)
	}
}

func TestRasterizeMeasurementPass(t *testing.T) {
	tab := &recordingTab{err: stderrors.New("stop")}
	if _, _, err := Rasterize(tab, []byte(`<svg/>`), Options{DPIX: 300, DPIY: 300}); err == nil {
		t.Fatal("Rasterize() error = nil, want the runner error")
	}
	if len(tab.batches) != 1 {
		t.Fatalf("Run called %d times, want 1", len(tab.batches))
	}
	metrics, ok := tab.batches[0][0].(*emulation.SetDeviceMetricsOverrideParams)
	if !ok {
		t.Fatalf("first action = %T, want device metrics override", tab.batches[0][0])
	}
	if metrics.Width != measureViewport || metrics.Height != measureViewport || metrics.DeviceScaleFactor != 1 {
		t.Errorf("measurement viewport = %dx%d@%v, want %dx%d@1",
			metrics.Width, metrics.Height, metrics.DeviceScaleFactor, measureViewport, measureViewport)
	}
}

func TestRasterizeInvalidBackground(t *testing.T) {
	tab := &recordingTab{}
	_, _, err := Rasterize(tab, []byte(`<svg/>`), Options{Background: "red;color:blue"})
	if !errors.Is(err, errors.ErrCodeInvalidBackground) {
		t.Errorf("Rasterize() error = %v, want INVALID_BACKGROUND", err)
	}
	if len(tab.batches) != 0 {
		t.Errorf("Run called %d times, want 0", len(tab.batches))
	}
}
