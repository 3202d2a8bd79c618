package raster

import "math"

const (
	// BaselineDPI is the resolution of one CSS pixel.
	BaselineDPI = 96

	// Oversample multiplies the requested DPI for anti-aliasing headroom.
	Oversample = 3
)

// NormalizeDPI replaces zero, negative and non-finite values with the baseline.
func NormalizeDPI(dpi float64) float64 {
	if dpi <= 0 || math.IsNaN(dpi) || math.IsInf(dpi, 0) {
		return BaselineDPI
	}
	return dpi
}

// DeviceScaleFactor returns the device pixel ratio used for capture:
// max(dpiX, dpiY) * 3 / 96. Invalid DPI values count as 96.
func DeviceScaleFactor(dpiX, dpiY float64) float64 {
	dpi := math.Max(NormalizeDPI(dpiX), NormalizeDPI(dpiY))
	return dpi * Oversample / BaselineDPI
}
