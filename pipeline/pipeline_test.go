package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/scanforge/scanprep/enhance"
	"github.com/scanforge/scanprep/observability"
	"github.com/scanforge/scanprep/orient"
	"github.com/scanforge/scanprep/rotate"
)

type stubDetector struct {
	est     orient.Estimate
	err     error
	waitCtx bool
}

func (s stubDetector) Name() string { return "stub" }
func (s stubDetector) Detect(ctx context.Context, _ image.Image) (orient.Estimate, error) {
	if s.waitCtx {
		<-ctx.Done()
		return orient.Estimate{}, ctx.Err()
	}
	return s.est, s.err
}

// darkPage builds a page with mean intensity around 60: a dark background
// with a brighter text-like band so binarization has both classes.
func darkPage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.NRGBA{55, 55, 55, 255}}, image.Point{}, draw.Src)
	band := image.Rect(0, h/3, w, h/3+h/8)
	draw.Draw(img, band, &image.Uniform{C: color.NRGBA{120, 120, 120, 255}}, image.Point{}, draw.Src)
	return img
}

func TestProcessEndToEndRotatedDarkPage(t *testing.T) {
	// A landscape-rotated dark page: the detector reports the 90° clockwise
	// fix, the output must be upright (portrait dims restored), strictly
	// two-level, and mostly white after the conditional brightness boost
	// plus thresholding pushed the background and band apart.
	upright := darkPage(60, 100)
	skewed, err := rotate.Clockwise(upright, 270, nil)
	if err != nil {
		t.Fatalf("prepare fixture: %v", err)
	}

	p := New(stubDetector{est: orient.Estimate{Angle: 90, Confidence: 0.8}}, DefaultParams())
	out, err := p.Process(context.Background(), skewed)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 60 || b.Dy() != 100 {
		t.Fatalf("output not upright: %v", b)
	}
	for _, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("output is not two-level: found %d", v)
		}
	}
	// Band rows ended up above the threshold, background below it.
	if out.GrayAt(30, 100/3+2).Y != 255 {
		t.Fatalf("text band did not binarize to white")
	}
	if out.GrayAt(30, 5).Y != 0 {
		t.Fatalf("dark background did not binarize to black")
	}
}

func TestProcessSuppressesInsignificantAngle(t *testing.T) {
	src := darkPage(40, 30)
	p := New(stubDetector{est: orient.Estimate{Angle: 3}}, DefaultParams())

	out, err := p.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 30 {
		t.Fatalf("dimensions changed despite insignificant angle: %v", out.Bounds())
	}
}

func TestProcessDetectorFailureContinues(t *testing.T) {
	p := New(stubDetector{err: errors.New("no text found")}, DefaultParams())

	out, err := p.Process(context.Background(), darkPage(40, 30))
	if err != nil {
		t.Fatalf("detection failure must not abort the page: %v", err)
	}
	if out.Bounds().Dx() != 40 {
		t.Fatalf("unexpected output bounds: %v", out.Bounds())
	}
}

func TestProcessDetectorTimeout(t *testing.T) {
	p := New(stubDetector{waitCtx: true}, DefaultParams(),
		WithDetectorTimeout(10*time.Millisecond))

	done := make(chan struct{})
	var out *image.Gray
	var err error
	go func() {
		out, err = p.Process(context.Background(), darkPage(40, 30))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("pipeline blocked on a hung detector")
	}
	if err != nil {
		t.Fatalf("timeout must degrade to no correction: %v", err)
	}
	if out == nil {
		t.Fatalf("no output produced")
	}
}

func TestProcessNilDetector(t *testing.T) {
	p := New(nil, DefaultParams())
	if _, err := p.Process(context.Background(), darkPage(20, 20)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
}

func TestProcessEmptyRaster(t *testing.T) {
	p := New(nil, DefaultParams())
	_, err := p.Process(context.Background(), image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	var eerr *EnhanceError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected EnhanceError, got %v", err)
	}
	if !errors.Is(err, enhance.ErrEmptyRaster) {
		t.Fatalf("expected ErrEmptyRaster in chain, got %v", err)
	}
}

func TestProcessDoesNotMutateInput(t *testing.T) {
	src := darkPage(20, 20)
	before := append([]uint8(nil), src.Pix...)

	p := New(stubDetector{est: orient.Estimate{Angle: 180}}, DefaultParams())
	if _, err := p.Process(context.Background(), src); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	for i := range before {
		if src.Pix[i] != before[i] {
			t.Fatalf("input raster was mutated at byte %d", i)
		}
	}
}

type recordedSpan struct {
	name string
	tags map[string]interface{}
	err  error
}

func (s *recordedSpan) SetTag(key string, value interface{}) { s.tags[key] = value }
func (s *recordedSpan) SetError(err error)                   { s.err = err }
func (s *recordedSpan) Finish()                              {}

type recordingTracer struct{ spans []*recordedSpan }

func (t *recordingTracer) StartSpan(ctx context.Context, name string) (context.Context, observability.Span) {
	span := &recordedSpan{name: name, tags: map[string]interface{}{}}
	t.spans = append(t.spans, span)
	return ctx, span
}

func (t *recordingTracer) span(name string) *recordedSpan {
	for _, s := range t.spans {
		if s.name == name {
			return s
		}
	}
	return nil
}

func TestProcessEmitsSpans(t *testing.T) {
	tracer := &recordingTracer{}
	p := New(stubDetector{est: orient.Estimate{Angle: 90, Confidence: 0.8}}, DefaultParams(),
		WithTracer(tracer))

	if _, err := p.Process(context.Background(), darkPage(40, 30)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	page := tracer.span(observability.MetricPageTime)
	if page == nil {
		t.Fatalf("no page span recorded")
	}
	if page.tags[observability.MetricRotationApplied] != 90 {
		t.Fatalf("rotation tag not set on page span: %+v", page.tags)
	}
	detect := tracer.span(observability.MetricDetectTime)
	if detect == nil {
		t.Fatalf("no detection span recorded")
	}
	if detect.tags["detector"] != "stub" {
		t.Fatalf("detector tag not set: %+v", detect.tags)
	}
}

func TestProcessDetectorFailureMarksSpan(t *testing.T) {
	tracer := &recordingTracer{}
	p := New(stubDetector{err: errors.New("no text found")}, DefaultParams(),
		WithTracer(tracer))

	if _, err := p.Process(context.Background(), darkPage(40, 30)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	detect := tracer.span(observability.MetricDetectTime)
	if detect == nil {
		t.Fatalf("no detection span recorded")
	}
	if detect.err == nil {
		t.Fatalf("detection failure not recorded on span")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	inner := errors.New("boom")
	cases := []struct {
		err  error
		want string
	}{
		{&DecodeError{Path: "a.png", Err: inner}, "decode a.png: boom"},
		{&OrientationError{Err: inner}, "orientation detection: boom"},
		{&RotationError{Angle: 90, Err: inner}, "rotate by 90: boom"},
		{&EnhanceError{Err: inner}, "enhance: boom"},
	}
	for _, c := range cases {
		if c.err.Error() != c.want {
			t.Fatalf("message = %q, want %q", c.err.Error(), c.want)
		}
		if !errors.Is(c.err, inner) {
			t.Fatalf("%T does not unwrap", c.err)
		}
	}
}
