// Package osd detects page orientation with Tesseract's orientation and
// script detection mode. It shells out to the tesseract binary (`--psm 0`),
// the same OSD facility the classic preprocessing stacks rely on, and parses
// the "Rotate:" line of its report. The external call is bounded by the
// caller's context, so a hung engine surfaces as an ordinary detection
// failure rather than blocking the page.
package osd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/scanforge/scanprep/orient"
	"github.com/scanforge/scanprep/raster"
)

const defaultBinary = "tesseract"

// runFunc executes the engine binary with the image on stdin and returns its
// stdout. It exists so tests can substitute a fake engine.
type runFunc func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// Detector implements orient.Detector on top of the tesseract OSD mode.
type Detector struct {
	binary string
	run    runFunc
}

// Option configures a Detector.
type Option func(*Detector)

// WithBinary overrides the engine binary path.
func WithBinary(path string) Option {
	return func(d *Detector) { d.binary = path }
}

func withRunner(run runFunc) Option {
	return func(d *Detector) { d.run = run }
}

// New constructs an OSD-backed orientation detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		binary: defaultBinary,
		run:    runCommand,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) Name() string { return "tesseract-osd" }

// Detect runs OSD on img and returns the clockwise correction to apply.
func (d *Detector) Detect(ctx context.Context, img image.Image) (orient.Estimate, error) {
	data, err := raster.EncodePNG(img)
	if err != nil {
		return orient.Estimate{}, err
	}
	out, err := d.run(ctx, data, d.binary, "stdin", "stdout", "--psm", "0")
	if err != nil {
		return orient.Estimate{}, fmt.Errorf("osd: run %s: %w", d.binary, err)
	}
	return parseReport(string(out))
}

// parseReport extracts the rotation and confidence from an OSD report such as
//
//	Page number: 0
//	Orientation in degrees: 270
//	Rotate: 90
//	Orientation confidence: 15.63
//	Script: Latin
//	Script confidence: 4.53
func parseReport(report string) (orient.Estimate, error) {
	var est orient.Estimate
	found := false
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Rotate:"); ok {
			angle, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return orient.Estimate{}, fmt.Errorf("osd: malformed rotate line %q: %w", line, err)
			}
			est.Angle = ((angle % 360) + 360) % 360
			found = true
		}
		if v, ok := strings.CutPrefix(line, "Orientation confidence:"); ok {
			if conf, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				// Tesseract reports a unitless ratio, typically 0-30ish.
				est.Confidence = conf / (conf + 1)
			}
		}
	}
	if !found {
		return orient.Estimate{}, fmt.Errorf("osd: no rotation in engine report")
	}
	return est, nil
}

func runCommand(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
