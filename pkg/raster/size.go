package raster

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/diagshot/pkg/errors"
)

// Document gives read access to the root svg element of a loaded page.
type Document interface {
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)

	// BoundingBox returns the laid-out size of the element in CSS pixels.
	BoundingBox() (width, height float64)
}

// Size is a resolved viewport size in whole CSS pixels, both at least 1.
type Size struct {
	Width  int
	Height int
}

// Source identifies which tier produced a size.
type Source int

const (
	SourceAttributes Source = iota + 1
	SourceViewBox
	SourceBoundingBox
)

func (s Source) String() string {
	switch s {
	case SourceAttributes:
		return "attributes"
	case SourceViewBox:
		return "viewBox"
	case SourceBoundingBox:
		return "bbox"
	}
	return "unknown"
}

// Resolution is the outcome of size resolution: the raw dimensions the
// winning tier produced and the final pixel size.
type Resolution struct {
	Size
	Source    Source
	RawWidth  float64
	RawHeight float64
}

// pxPerUnit converts absolute CSS units to px. A missing unit means px.
var pxPerUnit = map[string]float64{
	"px": 1,
	"pt": 1.25,
	"pc": 15,
	"mm": 3.7795275591,
	"cm": 37.795275591,
	"in": 96,
}

// lengthRe matches <number><unit>. The match is case-insensitive but unit
// lookup is not, so "10PX" is rejected like any other unknown unit.
var lengthRe = regexp.MustCompile(`(?i)^([+-]?\d*\.?\d+)([a-z%]*)$`)

// ParseLength converts an SVG length attribute to px. It reports false for
// empty values, unknown units and percentages.
func ParseLength(v string) (float64, bool) {
	m := lengthRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	unit := m[2]
	if unit == "" {
		unit = "px"
	}
	factor, ok := pxPerUnit[unit]
	if !ok {
		return 0, false
	}
	return num * factor, true
}

// ParseViewBox returns the width and height of a viewBox made of exactly four
// finite numbers separated by whitespace and/or commas.
func ParseViewBox(v string) (width, height float64, ok bool) {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
	})
	if len(fields) != 4 {
		return 0, 0, false
	}
	var nums [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, 0, false
		}
		nums[i] = n
	}
	return nums[2], nums[3], true
}

// ResolveSize picks the render size of doc.
//
// The attribute tier needs both lengths to be positive; zero, negative or
// unparsable values fall through. The viewBox tier accepts any four finite
// numbers. The bounding box always succeeds. A negative, non-finite or
// larger than MaxDimension result from the winning tier is an INVALID_SIZE
// error rather than being clamped.
func ResolveSize(doc Document) (Resolution, error) {
	w, h, src := rawSize(doc)
	size, err := finalize(w, h)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Size: size, Source: src, RawWidth: w, RawHeight: h}, nil
}

func rawSize(doc Document) (float64, float64, Source) {
	if w, h, ok := attributeSize(doc); ok {
		return w, h, SourceAttributes
	}
	if vb, ok := doc.Attr("viewBox"); ok {
		if w, h, ok := ParseViewBox(vb); ok {
			return w, h, SourceViewBox
		}
	}
	w, h := doc.BoundingBox()
	return w, h, SourceBoundingBox
}

func attributeSize(doc Document) (float64, float64, bool) {
	wAttr, ok := doc.Attr("width")
	if !ok {
		return 0, 0, false
	}
	hAttr, ok := doc.Attr("height")
	if !ok {
		return 0, 0, false
	}
	w, wok := ParseLength(wAttr)
	h, hok := ParseLength(hAttr)
	if !wok || !hok || !usable(w) || !usable(h) {
		return 0, 0, false
	}
	return w, h, true
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func finalize(w, h float64) (Size, error) {
	wp, err := toPixels("width", w)
	if err != nil {
		return Size{}, err
	}
	hp, err := toPixels("height", h)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: wp, Height: hp}, nil
}

// MaxDimension is the largest viewport edge Chrome accepts for a device
// metrics override.
const MaxDimension = 10000000

// toPixels rounds v up to a whole pixel, never below 1.
func toPixels(axis string, v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, errors.New(errors.ErrCodeInvalidSize, "cannot use %s %v as a pixel size", axis, v)
	}
	if v > MaxDimension {
		return 0, errors.New(errors.ErrCodeInvalidSize, "%s %v exceeds the maximum of %d pixels", axis, v, MaxDimension)
	}
	px := int(math.Ceil(v))
	if px < 1 {
		px = 1
	}
	return px, nil
}
