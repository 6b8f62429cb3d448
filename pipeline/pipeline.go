// Package pipeline wires the normalization stages into the per-page control
// flow: orientation estimation, rotation correction, contrast/brightness
// normalization and binarization. Processing is synchronous and page-at-a-
// time; each stage consumes one raster and produces a new one, so a single
// invocation owns every buffer it touches.
package pipeline

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/scanforge/scanprep/enhance"
	"github.com/scanforge/scanprep/observability"
	"github.com/scanforge/scanprep/orient"
	"github.com/scanforge/scanprep/raster"
	"github.com/scanforge/scanprep/rotate"
)

// Params carries every tuning constant of the pipeline. The values are
// design parameters, exposed here and in configuration rather than inlined.
type Params struct {
	// DPI is the render density for multi-page documents (applied at the
	// page source boundary, recorded here so one value travels with the
	// rest of the tuning).
	DPI float64
	// SignificanceDegrees is the half-width of the suppression window:
	// detected angles not strictly inside (window, 360-window) are no-ops.
	SignificanceDegrees int
	// ContrastFactor, BrightnessFactor, BrightnessMeanCutoff and
	// BinarizeThreshold mirror enhance.Params.
	ContrastFactor       float64
	BrightnessFactor     float64
	BrightnessMeanCutoff float64
	BinarizeThreshold    uint8
}

// DefaultParams returns the stock tuning: 300 DPI, ±5° significance window,
// contrast 2.0x, conditional brightness 1.5x below mean 128, threshold 100.
func DefaultParams() Params {
	e := enhance.DefaultParams()
	return Params{
		DPI:                  300,
		SignificanceDegrees:  5,
		ContrastFactor:       e.ContrastFactor,
		BrightnessFactor:     e.BrightnessFactor,
		BrightnessMeanCutoff: e.BrightnessMeanCutoff,
		BinarizeThreshold:    e.BinarizeThreshold,
	}
}

func (p Params) enhanceParams() enhance.Params {
	return enhance.Params{
		ContrastFactor:       p.ContrastFactor,
		BrightnessFactor:     p.BrightnessFactor,
		BrightnessMeanCutoff: p.BrightnessMeanCutoff,
		BinarizeThreshold:    p.BinarizeThreshold,
	}
}

// Pipeline normalizes page rasters for a downstream OCR or vision consumer.
type Pipeline struct {
	detector       orient.Detector
	params         Params
	background     color.Color
	detectTimeout  time.Duration
	log            observability.Logger
	tracer         observability.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger. Defaults to NopLogger.
func WithLogger(log observability.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithTracer sets the tracer. Defaults to NopTracer.
func WithTracer(tr observability.Tracer) Option {
	return func(p *Pipeline) { p.tracer = tr }
}

// WithBackground sets the fill color for bounding-box expansion.
func WithBackground(bg color.Color) Option {
	return func(p *Pipeline) { p.background = bg }
}

// WithDetectorTimeout bounds each orientation-detection call. A hung engine
// then degrades to a detection failure (angle 0) instead of blocking.
func WithDetectorTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.detectTimeout = d }
}

// New constructs a Pipeline. detector may be nil to disable orientation
// correction entirely.
func New(detector orient.Detector, params Params, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector:   detector,
		params:     params,
		background: rotate.DefaultBackground,
		log:        observability.NopLogger{},
		tracer:     observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Params returns the pipeline's tuning values.
func (p *Pipeline) Params() Params { return p.params }

// Process normalizes a single page raster: estimate orientation, correct it,
// stretch contrast, conditionally boost brightness, binarize. The input is
// never mutated. Only enhancement failures are fatal to the page; detection
// and rotation failures degrade per the error-handling policy and are logged.
func (p *Pipeline) Process(ctx context.Context, src image.Image) (*image.Gray, error) {
	ctx, span := p.tracer.StartSpan(ctx, observability.MetricPageTime)
	defer span.Finish()

	if src == nil || src.Bounds().Dx() == 0 || src.Bounds().Dy() == 0 {
		err := &EnhanceError{Err: enhance.ErrEmptyRaster}
		span.SetError(err)
		return nil, err
	}

	gray := raster.Grayscale(src)

	est := p.estimate(ctx, gray)
	span.SetTag("angle", est.Angle)

	work := src
	if est.Angle != 0 {
		rotated, err := rotate.Clockwise(src, float64(est.Angle), p.background)
		if err != nil {
			rerr := &RotationError{Angle: est.Angle, Err: err}
			p.log.Warn("rotation correction failed, passing through unrotated",
				observability.Int("angle", est.Angle), observability.Error("err", err))
			span.SetError(rerr)
		} else {
			p.log.Info("applied rotation correction",
				observability.Int("angle", est.Angle),
				observability.Float64("confidence", est.Confidence))
			span.SetTag(observability.MetricRotationApplied, est.Angle)
			work = rotated
			gray = raster.Grayscale(work)
		}
	}

	normalized, err := enhance.Normalize(gray, p.params.enhanceParams())
	if err != nil {
		eerr := &EnhanceError{Err: err}
		span.SetError(eerr)
		return nil, eerr
	}
	binarized, err := enhance.Binarize(normalized, p.params.BinarizeThreshold)
	if err != nil {
		eerr := &EnhanceError{Err: err}
		span.SetError(eerr)
		return nil, eerr
	}
	return binarized, nil
}

// estimate resolves the orientation under the detector timeout. Failures are
// logged and degrade to a zero estimate.
func (p *Pipeline) estimate(ctx context.Context, gray *image.Gray) orient.Estimate {
	if p.detector == nil {
		return orient.Estimate{}
	}
	ctx, span := p.tracer.StartSpan(ctx, observability.MetricDetectTime)
	defer span.Finish()
	span.SetTag("detector", p.detector.Name())

	if p.detectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.detectTimeout)
		defer cancel()
	}
	est, err := orient.Resolve(ctx, p.detector, gray, p.params.SignificanceDegrees)
	if err != nil {
		span.SetError(err)
		p.log.Warn("orientation detection failed, continuing uncorrected",
			observability.String("detector", p.detector.Name()),
			observability.Error("err", &OrientationError{Err: err}))
	}
	return est
}
