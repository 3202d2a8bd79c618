package raster

import (
	"math"
	"testing"

	"github.com/matzehuels/diagshot/pkg/errors"
)

type fakeDoc struct {
	attrs map[string]string
	w, h  float64
}

func (d fakeDoc) Attr(name string) (string, bool) {
	v, ok := d.attrs[name]
	return v, ok
}

func (d fakeDoc) BoundingBox() (float64, float64) { return d.w, d.h }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestParseLength(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"100", 100, true},
		{"100px", 100, true},
		{"12.5", 12.5, true},
		{".5", 0.5, true},
		{"-4", -4, true},
		{"+3px", 3, true},
		{"2in", 192, true},
		{"10mm", 37.795275591, true},
		{"1cm", 37.795275591, true},
		{"12pt", 15, true},
		{"1pc", 15, true},
		{" 40 ", 40, true},
		{"50%", 0, false},
		{"10em", 0, false},
		{"10PX", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"1e3", 0, false},
		{"10 px", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLength(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseLength(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && !approx(got, tt.want) {
				t.Errorf("ParseLength(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseViewBox(t *testing.T) {
	tests := []struct {
		in     string
		w, h   float64
		wantOK bool
	}{
		{"0 0 120 80", 120, 80, true},
		{"0,0,120,80", 120, 80, true},
		{" 0, 0  120\t80 ", 120, 80, true},
		{"-10 -10 0 -5", 0, -5, true},
		{"0 0 120", 0, 0, false},
		{"0 0 120 80 1", 0, 0, false},
		{"0 0 a 80", 0, 0, false},
		{"0 0 Inf 80", 0, 0, false},
		{"0 0 NaN 80", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, ok := ParseViewBox(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseViewBox(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && (w != tt.w || h != tt.h) {
				t.Errorf("ParseViewBox(%q) = %v x %v, want %v x %v", tt.in, w, h, tt.w, tt.h)
			}
		})
	}
}

func TestResolveSize(t *testing.T) {
	tests := []struct {
		name   string
		doc    fakeDoc
		want   Size
		source Source
	}{
		{
			name:   "attributes win",
			doc:    fakeDoc{attrs: map[string]string{"width": "200", "height": "100", "viewBox": "0 0 50 50"}, w: 10, h: 10},
			want:   Size{200, 100},
			source: SourceAttributes,
		},
		{
			name:   "attributes with units",
			doc:    fakeDoc{attrs: map[string]string{"width": "2in", "height": "10mm"}},
			want:   Size{192, 38},
			source: SourceAttributes,
		},
		{
			name:   "percentage falls through to viewBox",
			doc:    fakeDoc{attrs: map[string]string{"width": "100%", "height": "100%", "viewBox": "0 0 300 150"}},
			want:   Size{300, 150},
			source: SourceViewBox,
		},
		{
			name:   "only width falls through",
			doc:    fakeDoc{attrs: map[string]string{"width": "100", "viewBox": "0 0 64 32"}},
			want:   Size{64, 32},
			source: SourceViewBox,
		},
		{
			name:   "zero attribute falls through",
			doc:    fakeDoc{attrs: map[string]string{"width": "0", "height": "100", "viewBox": "0 0 64 32"}},
			want:   Size{64, 32},
			source: SourceViewBox,
		},
		{
			name:   "negative attribute falls through",
			doc:    fakeDoc{attrs: map[string]string{"width": "-5", "height": "100"}, w: 12.2, h: 7},
			want:   Size{13, 7},
			source: SourceBoundingBox,
		},
		{
			name:   "bad viewBox falls through to bbox",
			doc:    fakeDoc{attrs: map[string]string{"viewBox": "0 0 10"}, w: 99.01, h: 40},
			want:   Size{100, 40},
			source: SourceBoundingBox,
		},
		{
			name:   "nothing declared uses bbox",
			doc:    fakeDoc{w: 320, h: 240},
			want:   Size{320, 240},
			source: SourceBoundingBox,
		},
		{
			name:   "zero viewBox floors to one",
			doc:    fakeDoc{attrs: map[string]string{"viewBox": "0 0 0 0"}},
			want:   Size{1, 1},
			source: SourceViewBox,
		},
		{
			name:   "fractional bbox floors to one",
			doc:    fakeDoc{w: 0.4, h: 0},
			want:   Size{1, 1},
			source: SourceBoundingBox,
		},
		{
			name:   "fractional attributes round up",
			doc:    fakeDoc{attrs: map[string]string{"width": "10.1", "height": "0.2"}},
			want:   Size{11, 1},
			source: SourceAttributes,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSize(tt.doc)
			if err != nil {
				t.Fatalf("ResolveSize() error = %v", err)
			}
			if got.Size != tt.want {
				t.Errorf("Size = %+v, want %+v", got.Size, tt.want)
			}
			if got.Source != tt.source {
				t.Errorf("Source = %v, want %v", got.Source, tt.source)
			}
		})
	}
}

func TestResolveSizeInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  fakeDoc
	}{
		{"negative viewBox", fakeDoc{attrs: map[string]string{"viewBox": "0 0 -10 20"}}},
		{"NaN bbox", fakeDoc{w: math.NaN(), h: 10}},
		{"infinite bbox", fakeDoc{w: 10, h: math.Inf(1)}},
		{"negative bbox", fakeDoc{w: 10, h: -1}},
		{"huge viewBox", fakeDoc{attrs: map[string]string{"viewBox": "0 0 1e300 10"}}},
		{"huge attributes", fakeDoc{attrs: map[string]string{"width": "20000000", "height": "10"}}},
		{"huge bbox", fakeDoc{w: 10, h: 1e19}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveSize(tt.doc)
			if !errors.Is(err, errors.ErrCodeInvalidSize) {
				t.Errorf("ResolveSize() error = %v, want INVALID_SIZE", err)
			}
		})
	}
}

func TestResolveSizeMaxDimension(t *testing.T) {
	res, err := ResolveSize(fakeDoc{attrs: map[string]string{"viewBox": "0 0 10000000 1"}})
	if err != nil {
		t.Fatalf("ResolveSize() error = %v", err)
	}
	if res.Size.Width != MaxDimension {
		t.Errorf("Width = %d, want %d", res.Size.Width, MaxDimension)
	}
}

func TestDeviceScaleFactor(t *testing.T) {
	tests := []struct {
		x, y float64
		want float64
	}{
		{96, 96, 3},
		{150, 96, 4.6875},
		{96, 150, 4.6875},
		{0, 0, 3},
		{-1, 72, 3},
		{192, 0, 6},
		{math.NaN(), 96, 3},
	}
	for _, tt := range tests {
		if got := DeviceScaleFactor(tt.x, tt.y); !approx(got, tt.want) {
			t.Errorf("DeviceScaleFactor(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestSourceString(t *testing.T) {
	if SourceViewBox.String() != "viewBox" || SourceBoundingBox.String() != "bbox" || Source(0).String() != "unknown" {
		t.Error("unexpected Source names")
	}
}

func TestSnapshotAttr(t *testing.T) {
	w := "10"
	s := &Snapshot{Found: true, Width: &w, RectWidth: 3, RectHeight: 4}
	if v, ok := s.Attr("width"); !ok || v != "10" {
		t.Errorf("Attr(width) = %q, %v", v, ok)
	}
	if _, ok := s.Attr("height"); ok {
		t.Error("Attr(height) present, want absent")
	}
	if _, ok := s.Attr("viewBox"); ok {
		t.Error("Attr(viewBox) present, want absent")
	}
	if w, h := s.BoundingBox(); w != 3 || h != 4 {
		t.Errorf("BoundingBox() = %v, %v", w, h)
	}
}

func TestWrapSVG(t *testing.T) {
	svg := []byte(`<svg/>`)
	if got := wrapSVG(svg, Options{}); got != `<html><body style="margin:0"><svg/></body></html>` {
		t.Errorf("transparent page = %s", got)
	}
	if got := wrapSVG(svg, Options{Background: "white"}); got != `<html><body style="margin:0;background:white"><svg/></body></html>` {
		t.Errorf("opaque page = %s", got)
	}
}
