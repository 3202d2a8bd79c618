// Package raster turns an SVG document loaded in a browser tab into PNG bytes.
//
// # Size Resolution
//
// SVG has no single authoritative size, so [ResolveSize] picks one from three
// sources in strict order, first success wins:
//
//  1. the width and height attributes, both required, in px, pt, pc, mm, cm
//     or in (percentages cannot be resolved and are ignored)
//  2. the viewBox width and height
//  3. the laid-out bounding box of the root element
//
// Each dimension is rounded up to a whole pixel with a floor of 1.
//
// # Capture
//
// The requested DPI is not written as image metadata. Instead the viewport
// is resized to the resolved CSS size and rendered at a device pixel ratio of
// max(dpiX, dpiY) * 3 / 96, oversampling three times relative to the 96 DPI
// baseline:
//
//	png, res, err := raster.Rasterize(page, svg, raster.Options{DPIX: 150, DPIY: 150})
package raster
