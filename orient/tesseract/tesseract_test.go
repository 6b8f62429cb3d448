package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/scanforge/scanprep/orient"
	"github.com/scanforge/scanprep/rotate"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

// textPage renders a few lines of dark text on a white page.
func textPage(t *testing.T) image.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 160))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
	}
	lines := []string{
		"INVOICE 2024-0042",
		"TOTAL AMOUNT DUE 1,250.00",
		"PAYMENT WITHIN 30 DAYS",
	}
	for i, line := range lines {
		d.Dot = fixed.P(16, 40+i*30)
		d.DrawString(line)
	}
	return img
}

func TestDetectorSatisfiesInterface(t *testing.T) {
	var _ orient.Detector = New()
}

func TestDetectUprightPage(t *testing.T) {
	ensureTesseractAvailable(t)

	est, err := New(WithLanguages("eng")).Detect(context.Background(), textPage(t))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if est.Angle != 0 {
		t.Fatalf("upright page voted %d", est.Angle)
	}
}

func TestDetectRotatedPage(t *testing.T) {
	ensureTesseractAvailable(t)

	// Page content rotated 90 counter-clockwise needs a 90 clockwise fix.
	skewed, err := rotate.Clockwise(textPage(t), 270, nil)
	if err != nil {
		t.Fatalf("prepare fixture: %v", err)
	}
	est, err := New(WithLanguages("eng")).Detect(context.Background(), skewed)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if est.Angle != 90 {
		t.Fatalf("voted %d, want 90", est.Angle)
	}
}

func TestDetectBlankPageFails(t *testing.T) {
	ensureTesseractAvailable(t)

	blank := image.NewRGBA(image.Rect(0, 0, 64, 64))
	draw.Draw(blank, blank.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if _, err := New().Detect(context.Background(), blank); err == nil {
		t.Fatalf("expected detection failure for a blank page")
	}
}

func TestDetectCanceledContext(t *testing.T) {
	ensureTesseractAvailable(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Detect(ctx, textPage(t)); err == nil {
		t.Fatalf("expected context error")
	}
}
