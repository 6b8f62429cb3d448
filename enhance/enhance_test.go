package enhance

import (
	"bytes"
	"image"
	"testing"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func TestBinarizeThresholdExactness(t *testing.T) {
	cases := []struct {
		in   uint8
		want uint8
	}{
		{99, 0},
		{100, 255},
		{101, 255},
		{0, 0},
		{255, 255},
	}
	for _, c := range cases {
		g := uniformGray(1, 1, c.in)
		out, err := Binarize(g, 100)
		if err != nil {
			t.Fatalf("Binarize(%d) error = %v", c.in, err)
		}
		if got := out.GrayAt(0, 0).Y; got != c.want {
			t.Fatalf("Binarize(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestBinarizeIdempotent(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range g.Pix {
		g.Pix[i] = uint8(i)
	}
	once, err := Binarize(g, 100)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := Binarize(once, 100)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !bytes.Equal(once.Pix, twice.Pix) {
		t.Fatalf("binarization is not idempotent")
	}
}

func TestBinarizeDoesNotMutateInput(t *testing.T) {
	g := uniformGray(2, 2, 50)
	if _, err := Binarize(g, 100); err != nil {
		t.Fatalf("Binarize() error = %v", err)
	}
	if g.GrayAt(0, 0).Y != 50 {
		t.Fatalf("input raster was mutated")
	}
}

func TestStretchContrastAnchoredAtMean(t *testing.T) {
	// Two-value image with mean 100: values move away from the anchor.
	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.Pix[0] = 80
	g.Pix[1] = 120

	out := StretchContrast(g, 2.0)
	if got := out.GrayAt(0, 0).Y; got != 60 {
		t.Fatalf("dark pixel = %d, want 60", got)
	}
	if got := out.GrayAt(1, 0).Y; got != 140 {
		t.Fatalf("bright pixel = %d, want 140", got)
	}
}

func TestStretchContrastClamps(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.Pix[0] = 0
	g.Pix[1] = 255 // mean 128 after rounding

	out := StretchContrast(g, 4.0)
	if out.GrayAt(0, 0).Y != 0 || out.GrayAt(1, 0).Y != 255 {
		t.Fatalf("expected clamped extremes, got %d and %d",
			out.GrayAt(0, 0).Y, out.GrayAt(1, 0).Y)
	}
}

func TestNormalizeBoostsDarkPages(t *testing.T) {
	// Uniform dark page: the contrast stretch is a no-op around its own mean,
	// so the post-stretch mean stays 60 and the boost must fire.
	g := uniformGray(4, 4, 60)

	out, err := Normalize(g, DefaultParams())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := out.GrayAt(0, 0).Y; got != 90 {
		t.Fatalf("dark page pixel = %d, want 90 (60 * 1.5)", got)
	}
}

func TestNormalizeLeavesBrightPagesAlone(t *testing.T) {
	g := uniformGray(4, 4, 200)

	out, err := Normalize(g, DefaultParams())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := out.GrayAt(0, 0).Y; got != 200 {
		t.Fatalf("bright page pixel = %d, want 200 (no boost)", got)
	}
}

func TestNormalizeCutoffBoundary(t *testing.T) {
	// Mean exactly at the cutoff keeps the 1.0x factor.
	g := uniformGray(4, 4, 128)

	out, err := Normalize(g, DefaultParams())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := out.GrayAt(0, 0).Y; got != 128 {
		t.Fatalf("pixel at cutoff mean = %d, want 128", got)
	}
}

func TestEmptyRasterRejected(t *testing.T) {
	empty := image.NewGray(image.Rect(0, 0, 0, 0))
	if _, err := Normalize(empty, DefaultParams()); err != ErrEmptyRaster {
		t.Fatalf("Normalize(empty) error = %v, want ErrEmptyRaster", err)
	}
	if _, err := Binarize(empty, 100); err != ErrEmptyRaster {
		t.Fatalf("Binarize(empty) error = %v, want ErrEmptyRaster", err)
	}
	if _, err := Normalize(nil, DefaultParams()); err != ErrEmptyRaster {
		t.Fatalf("Normalize(nil) error = %v, want ErrEmptyRaster", err)
	}
}

func TestBoostBrightnessClamps(t *testing.T) {
	g := uniformGray(1, 1, 200)
	out := BoostBrightness(g, 1.5)
	if got := out.GrayAt(0, 0).Y; got != 255 {
		t.Fatalf("boosted pixel = %d, want clamp to 255", got)
	}
}
