// Package rotate applies orientation corrections to page rasters.
//
// Sign convention: angles are the clockwise rotation to apply to the raster.
// The orientation detectors report the clockwise correction that makes text
// upright, so callers pass detector output through unmodified. The canvas
// grows to the rotated content's bounding box; newly exposed area is filled
// with a neutral background so no original pixel is cropped.
package rotate

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultBackground fills the area exposed by bounding-box expansion.
var DefaultBackground color.Color = color.White

// Clockwise rotates src clockwise by degrees with bounding-box expansion.
// Multiples of 90 use exact pixel transposes; other angles are interpolated.
// The angle is normalized into [0, 360); NaN or infinite angles are invalid.
func Clockwise(src image.Image, degrees float64, bg color.Color) (image.Image, error) {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return nil, fmt.Errorf("rotate: invalid angle %v", degrees)
	}
	if bg == nil {
		bg = DefaultBackground
	}
	deg := math.Mod(degrees, 360)
	if deg < 0 {
		deg += 360
	}
	// imaging rotates counter-clockwise for positive angles.
	switch deg {
	case 0:
		return imaging.Clone(src), nil
	case 90:
		return imaging.Rotate270(src), nil
	case 180:
		return imaging.Rotate180(src), nil
	case 270:
		return imaging.Rotate90(src), nil
	default:
		return imaging.Rotate(src, -deg, bg), nil
	}
}
