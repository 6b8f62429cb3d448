// Package mupdf renders PDF pages through go-fitz (MuPDF) at a fixed density.
package mupdf

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Renderer implements pagesource.Renderer with MuPDF.
type Renderer struct{}

// New constructs a MuPDF-backed renderer.
func New() *Renderer { return &Renderer{} }

func (r *Renderer) Name() string { return "mupdf" }

// RenderPages rasterizes every page of the document at dpi.
func (r *Renderer) RenderPages(ctx context.Context, path string, dpi float64) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("mupdf: open: %w", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("mupdf: render page %d: %w", n+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
