// Package raster holds the pixel-level helpers shared by the normalization
// stages: grayscale conversion, cloning, luminance statistics and PNG
// encoding. Stages never mutate the rasters they receive; every operation
// here allocates a fresh buffer.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Grayscale converts src to an 8-bit grayscale image using the ITU-R 601-2
// luma transform (L = 0.299R + 0.587G + 0.114B). A grayscale input is copied,
// not aliased.
func Grayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := src.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], g.Pix[y*g.Stride:y*g.Stride+b.Dx()])
		}
		return dst
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			r8 := r >> 8
			g8 := g >> 8
			b8 := bl >> 8
			l := (299*r8 + 587*g8 + 114*b8 + 500) / 1000
			dst.Pix[(y-b.Min.Y)*dst.Stride+(x-b.Min.X)] = uint8(l)
		}
	}
	return dst
}

// Clone returns a deep copy of g with a zero-origin bounds rectangle.
func Clone(g *image.Gray) *image.Gray {
	b := g.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], g.Pix[y*g.Stride:y*g.Stride+b.Dx()])
	}
	return dst
}

// Mean returns the average pixel intensity of g on the 0-255 scale.
// An empty image has mean 0.
func Mean(g *image.Gray) float64 {
	b := g.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			sum += uint64(v)
		}
	}
	return float64(sum) / float64(b.Dx()*b.Dy())
}

// EncodePNG serializes img as PNG. Orientation detectors and the field
// extractor submit rasters to external engines in this form.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
