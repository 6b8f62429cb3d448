// Package orient estimates the rotation needed to make scanned text upright.
//
// Detection is delegated to an OCR-engine capability behind the Detector
// interface so engines can be swapped or mocked without touching pipeline
// logic. Estimates are acted on only when significant: coarse page rotations
// (90° multiples) trigger correction, near-zero jitter does not.
package orient

import (
	"context"
	"image"
)

// Estimate is a detector's best guess at the clockwise rotation, in degrees,
// that makes horizontal text readable left-to-right.
type Estimate struct {
	// Angle is one of 0, 90, 180 or 270.
	Angle int
	// Confidence is the engine's confidence in the estimate, normalized to
	// [0, 1]. Zero means unknown.
	Confidence float64
}

// Significant reports whether the estimate should trigger a correction.
// Treated as a continuous deviation mod 360, an angle is significant only
// when it falls strictly between windowDegrees and 360-windowDegrees, so
// both near-zero and near-full-turn estimates are no-ops.
func (e Estimate) Significant(windowDegrees int) bool {
	a := e.Angle % 360
	if a < 0 {
		a += 360
	}
	return a > windowDegrees && a < 360-windowDegrees
}

// Detector is the orientation-detection capability: one raster in, one
// estimate out. Implementations must honor ctx cancellation; a caller-bounded
// timeout turns a hung engine into an ordinary detection failure.
type Detector interface {
	Name() string
	Detect(ctx context.Context, img image.Image) (Estimate, error)
}

// Resolve runs the detector and applies the suppression policy. The returned
// estimate is always safe to act on: detector failures and insignificant
// angles both degrade to a zero estimate. The error, when non-nil, is
// informational; detection failure never aborts a page.
func Resolve(ctx context.Context, d Detector, img image.Image, windowDegrees int) (Estimate, error) {
	if d == nil {
		return Estimate{}, nil
	}
	est, err := d.Detect(ctx, img)
	if err != nil {
		return Estimate{}, err
	}
	if !est.Significant(windowDegrees) {
		return Estimate{Confidence: est.Confidence}, nil
	}
	return est, nil
}
