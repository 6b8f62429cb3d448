// Package tesseract implements orientation detection with the gosseract
// client by voting: the page is recognized at each of the four quarter-turn
// candidates and the rotation with the highest mean word confidence wins.
// Slower than OSD mode but does not depend on the osd traineddata being
// installed, and copes better with sparse or photographed text.
package tesseract

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/scanforge/scanprep/orient"
	"github.com/scanforge/scanprep/raster"
	"github.com/scanforge/scanprep/rotate"
)

var candidates = []int{0, 90, 180, 270}

// Detector implements orient.Detector using the gosseract client as the
// recognition engine.
type Detector struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// Option configures a Detector.
type Option func(*Detector)

// WithLanguages sets the traineddata languages used for scoring.
func WithLanguages(langs ...string) Option {
	return func(d *Detector) { d.languages = append([]string(nil), langs...) }
}

// New constructs a confidence-vote orientation detector.
func New(opts ...Option) *Detector {
	d := &Detector{clientFactory: gosseract.NewClient}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) Name() string { return "tesseract-vote" }

// Detect scores the four candidate rotations and returns the winner as the
// clockwise correction to apply. If no candidate yields any recognized word,
// detection fails and the caller falls back to no correction.
func (d *Detector) Detect(ctx context.Context, img image.Image) (orient.Estimate, error) {
	c := d.clientFactory()
	defer c.Close()
	if len(d.languages) > 0 {
		if err := c.SetLanguage(d.languages...); err != nil {
			return orient.Estimate{}, fmt.Errorf("set languages: %w", err)
		}
	}

	bestAngle := -1
	bestScore := 0.0
	var secondScore float64
	for _, angle := range candidates {
		select {
		case <-ctx.Done():
			return orient.Estimate{}, ctx.Err()
		default:
		}
		score, err := d.scoreCandidate(c, img, angle)
		if err != nil {
			return orient.Estimate{}, err
		}
		if score > bestScore {
			secondScore = bestScore
			bestScore = score
			bestAngle = angle
		} else if score > secondScore {
			secondScore = score
		}
	}
	if bestAngle < 0 {
		return orient.Estimate{}, fmt.Errorf("orientation vote: no text recognized at any rotation")
	}
	conf := 0.0
	if bestScore > 0 {
		conf = (bestScore - secondScore) / bestScore
	}
	return orient.Estimate{Angle: bestAngle, Confidence: conf}, nil
}

// scoreCandidate recognizes the page rotated clockwise by angle and returns
// the mean word confidence, zero when nothing is recognized.
func (d *Detector) scoreCandidate(c *gosseract.Client, img image.Image, angle int) (float64, error) {
	rotated, err := rotate.Clockwise(img, float64(angle), nil)
	if err != nil {
		return 0, fmt.Errorf("rotate candidate %d: %w", angle, err)
	}
	data, err := raster.EncodePNG(rotated)
	if err != nil {
		return 0, err
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return 0, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100.0, nil
}
