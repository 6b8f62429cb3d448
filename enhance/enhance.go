// Package enhance implements the legibility stages of the pipeline: a
// contrast stretch anchored at the page's mean luminance, a conditional
// brightness boost for under-lit scans, and a global fixed-threshold
// binarization. All operations are deterministic and allocate new rasters.
package enhance

import (
	"errors"
	"image"
	"math"

	"github.com/scanforge/scanprep/raster"
)

// ErrEmptyRaster is reported when a stage receives an image with no pixels.
var ErrEmptyRaster = errors.New("enhance: empty raster")

// Params carries the enhancement tuning values. They are design parameters,
// surfaced in configuration rather than inlined at call sites.
type Params struct {
	// ContrastFactor stretches intensities away from the page mean.
	ContrastFactor float64
	// BrightnessFactor is applied only when the stretched page is dark.
	BrightnessFactor float64
	// BrightnessMeanCutoff is the mean intensity below which the page is
	// considered dark (midpoint of the 8-bit range).
	BrightnessMeanCutoff float64
	// BinarizeThreshold separates black from white in the final raster.
	BinarizeThreshold uint8
}

// DefaultParams returns the stock tuning: contrast 2.0x, brightness 1.5x
// below mean 128, binarization threshold 100.
func DefaultParams() Params {
	return Params{
		ContrastFactor:       2.0,
		BrightnessFactor:     1.5,
		BrightnessMeanCutoff: 128,
		BinarizeThreshold:    100,
	}
}

// StretchContrast scales intensities by factor around the image's mean
// luminance (rounded to the nearest integer), clamping to [0, 255]. A factor
// of 1.0 copies the input.
func StretchContrast(src *image.Gray, factor float64) *image.Gray {
	anchor := math.Floor(raster.Mean(src) + 0.5)
	dst := raster.Clone(src)
	for i, v := range dst.Pix {
		dst.Pix[i] = clamp(anchor + factor*(float64(v)-anchor))
	}
	return dst
}

// BoostBrightness multiplies every intensity by factor, clamping to [0, 255].
func BoostBrightness(src *image.Gray, factor float64) *image.Gray {
	dst := raster.Clone(src)
	for i, v := range dst.Pix {
		dst.Pix[i] = clamp(float64(v) * factor)
	}
	return dst
}

// Normalize applies the contrast stretch and then, only if the stretched
// image's mean intensity falls below the cutoff, the brightness boost. Bright
// pages pass through the second stage unchanged.
func Normalize(src *image.Gray, p Params) (*image.Gray, error) {
	if src == nil || src.Bounds().Dx() == 0 || src.Bounds().Dy() == 0 {
		return nil, ErrEmptyRaster
	}
	stretched := StretchContrast(src, p.ContrastFactor)
	if raster.Mean(stretched) < p.BrightnessMeanCutoff {
		return BoostBrightness(stretched, p.BrightnessFactor), nil
	}
	return stretched, nil
}

// Binarize maps every intensity below threshold to pure black and every
// intensity at or above it to pure white. Applying it twice yields the same
// raster as applying it once.
func Binarize(src *image.Gray, threshold uint8) (*image.Gray, error) {
	if src == nil || src.Bounds().Dx() == 0 || src.Bounds().Dy() == 0 {
		return nil, ErrEmptyRaster
	}
	dst := raster.Clone(src)
	for i, v := range dst.Pix {
		if v < threshold {
			dst.Pix[i] = 0
		} else {
			dst.Pix[i] = 255
		}
	}
	return dst, nil
}

func clamp(v float64) uint8 {
	r := math.Floor(v + 0.5)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
