package pptxhtml

import (
	"math"
	"strconv"
)

// EMU (English Metric Units) conversion helpers.
// 1 inch = 914400 EMU, 1 point = 12700 EMU, 1 CSS pixel = 9525 EMU (96 px/inch).
// Geometry stays in EMU inside the pipeline; these helpers are used only where
// a value crosses into or out of markup.

const (
	emuPerInch  = 914400
	emuPerPoint = 12700
	emuPerPixel = emuPerInch / pixelsPerInch

	pixelsPerInch = 96
	pointsPerInch = 72

	// angleUnit is the package's fixed-point scale for angles (60000ths of a degree).
	angleUnit = 60000
	// fixedPercent is the package's fixed-point scale for percentages (100000 = 100%).
	fixedPercent = 100000

	// maxEMU is the maximum safe EMU value to prevent overflow.
	maxEMU = math.MaxInt64 / 2
)

// Inch converts inches to EMU. Clamps to safe range.
func Inch(n float64) int64 {
	return clampEMU(math.Round(n * emuPerInch))
}

// Point converts points to EMU.
func Point(n float64) int64 {
	return clampEMU(math.Round(n * emuPerPoint))
}

// Pixel converts CSS pixels to EMU.
func Pixel(n float64) int64 {
	return clampEMU(math.Round(n * emuPerPixel))
}

// EMUToPixel converts EMU to CSS pixels.
func EMUToPixel(emu int64) float64 {
	return float64(emu) / emuPerPixel
}

// PointToPixel converts a font size in points to CSS pixels.
func PointToPixel(pt float64) float64 {
	return pt * pixelsPerInch / pointsPerInch
}

// PixelToPoint converts a CSS pixel font size to points.
func PixelToPoint(px float64) float64 {
	return px * pointsPerInch / pixelsPerInch
}

// clampEMU converts a float64 to int64, clamping to prevent overflow.
func clampEMU(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > float64(maxEMU) {
		return maxEMU
	}
	if v < -float64(maxEMU) {
		return -maxEMU
	}
	return int64(v)
}

// formatPx renders a pixel value with at most four decimals and no trailing zeros.
// Four decimals keep EMU -> px -> EMU exact, since 0.00005 px is below half an EMU.
func formatPx(v float64) string {
	return formatNumber(v) + "px"
}

func formatNumber(v float64) string {
	r := math.Round(v*10000) / 10000
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
