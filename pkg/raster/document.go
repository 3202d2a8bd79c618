package raster

import (
	"context"

	"github.com/chromedp/chromedp"

	"github.com/matzehuels/diagshot/pkg/errors"
)

// snapshotJS reads everything size resolution needs in one round trip.
// Absent attributes are reported as null, not as empty strings.
const snapshotJS = `(() => {
	const svg = document.querySelector('svg');
	if (!svg) return {found: false};
	const attr = n => svg.hasAttribute(n) ? svg.getAttribute(n) : null;
	const r = svg.getBoundingClientRect();
	return {
		found: true,
		width: attr('width'),
		height: attr('height'),
		viewBox: attr('viewBox'),
		rectWidth: r.width,
		rectHeight: r.height,
	};
})()`

// Snapshot is a Document captured from a live page.
type Snapshot struct {
	Found      bool    `json:"found"`
	Width      *string `json:"width"`
	Height     *string `json:"height"`
	ViewBox    *string `json:"viewBox"`
	RectWidth  float64 `json:"rectWidth"`
	RectHeight float64 `json:"rectHeight"`
}

// Attr implements Document.
func (s *Snapshot) Attr(name string) (string, bool) {
	var v *string
	switch name {
	case "width":
		v = s.Width
	case "height":
		v = s.Height
	case "viewBox":
		v = s.ViewBox
	}
	if v == nil {
		return "", false
	}
	return *v, true
}

// BoundingBox implements Document.
func (s *Snapshot) BoundingBox() (float64, float64) {
	return s.RectWidth, s.RectHeight
}

// TakeSnapshot evaluates the root svg element of the page in ctx.
// It fails with MISSING_SVG when the page has no svg element.
func TakeSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := chromedp.Evaluate(snapshotJS, &snap).Do(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "inspect svg element")
	}
	if !snap.Found {
		return nil, errors.New(errors.ErrCodeMissingSVG, "document has no svg element")
	}
	return &snap, nil
}

var _ Document = (*Snapshot)(nil)
