// Package pagesource turns input documents into the rasters the pipeline
// operates on. Single-image files are decoded at their native resolution;
// multi-page documents are rendered page-by-page at a fixed density through
// the Renderer capability so the rasterizer can be swapped or mocked.
package pagesource

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/scanforge/scanprep/observability"
)

// DefaultDPI is the mandated render density for multi-page documents.
// Lower densities degrade orientation and OCR accuracy; higher ones grow
// memory and processing time roughly quadratically.
const DefaultDPI = 300

// Page is a single rendered page of an input document.
type Page struct {
	// Index is the zero-based page index within the document.
	Index int
	Image image.Image
}

// Renderer rasterizes one document's pages at the requested density.
type Renderer interface {
	Name() string
	RenderPages(ctx context.Context, path string, dpi float64) ([]image.Image, error)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".gif":  true,
}

// IsImage reports whether path names a single-raster image file.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsDocument reports whether path names a multi-page document format.
func IsDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// IsSupported reports whether the adapter can produce rasters for path.
func IsSupported(path string) bool {
	return IsImage(path) || IsDocument(path)
}

// Adapter converts input files into page rasters.
type Adapter struct {
	renderer Renderer
	dpi      float64
	tracer   observability.Tracer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTracer sets the tracer for document rendering. Defaults to NopTracer.
func WithTracer(tr observability.Tracer) Option {
	return func(a *Adapter) { a.tracer = tr }
}

// New constructs an Adapter. renderer may be nil when only single-image
// inputs are expected; dpi values <= 0 fall back to DefaultDPI.
func New(renderer Renderer, dpi float64, opts ...Option) *Adapter {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	a := &Adapter{renderer: renderer, dpi: dpi, tracer: observability.NopTracer()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DPI returns the density used for document rendering.
func (a *Adapter) DPI() float64 { return a.dpi }

// Pages produces one raster per page of the input file. Decode failures are
// reported to the caller; they skip the file, never the batch.
func (a *Adapter) Pages(ctx context.Context, path string) ([]Page, error) {
	switch {
	case IsDocument(path):
		if a.renderer == nil {
			return nil, fmt.Errorf("pagesource: no renderer configured for %s", filepath.Base(path))
		}
		ctx, span := a.tracer.StartSpan(ctx, observability.MetricRenderTime)
		defer span.Finish()
		images, err := a.renderer.RenderPages(ctx, path, a.dpi)
		if err != nil {
			rerr := fmt.Errorf("pagesource: render %s: %w", filepath.Base(path), err)
			span.SetError(rerr)
			return nil, rerr
		}
		span.SetTag(observability.MetricPageCount, len(images))
		pages := make([]Page, 0, len(images))
		for i, img := range images {
			pages = append(pages, Page{Index: i, Image: img})
		}
		return pages, nil
	case IsImage(path):
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("pagesource: decode %s: %w", filepath.Base(path), err)
		}
		return []Page{{Index: 0, Image: img}}, nil
	default:
		return nil, fmt.Errorf("pagesource: unsupported format %q", filepath.Ext(path))
	}
}
