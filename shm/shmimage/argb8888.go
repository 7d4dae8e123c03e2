// Package shmimage provides image.Image implementations over the pixel
// formats that wl_shm buffers use.
package shmimage

import (
	"image"
	"image/color"
	"image/draw"

	"deedles.dev/wlcompositor/internal/bin"
)

// ARGB8888 is an in-memory image whose At method returns ARGB8888Color
// values.
type ARGB8888 struct {
	// Pix holds the image's pixels as host-endian 32-bit words, which
	// on little-endian machines is B, G, R, A order. The pixel at (x, y)
	// starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// NewARGB8888 returns a new ARGB8888 image with the given bounds.
func NewARGB8888(r image.Rectangle) *ARGB8888 {
	return &ARGB8888{
		Pix:    make([]uint8, r.Dx()*r.Dy()*4),
		Stride: 4 * r.Dx(),
		Rect:   r,
	}
}

func (p *ARGB8888) Bounds() image.Rectangle { return p.Rect }

func (p *ARGB8888) ColorModel() color.Model { return ARGB8888Model }

func (p *ARGB8888) At(x, y int) color.Color {
	return p.ARGB8888At(x, y)
}

func (p *ARGB8888) ARGB8888At(x, y int) ARGB8888Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return ARGB8888Color(0)
	}
	i := p.PixOffset(x, y)
	return bin.Get[ARGB8888Color](p.Pix[i : i+4 : i+4])
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *ARGB8888) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *ARGB8888) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	bin.Put(p.Pix[i:i+4:i+4], ARGB8888Model.Convert(c).(ARGB8888Color))
}

// SubImage returns an image representing the portion of the image p visible
// through r. The returned value shares pixels with the original image.
func (p *ARGB8888) SubImage(r image.Rectangle) draw.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &ARGB8888{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &ARGB8888{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}

// XRGB8888 is an ARGB8888 image whose alpha channel is ignored. Every
// pixel is opaque.
type XRGB8888 struct {
	ARGB8888
}

func (p *XRGB8888) ColorModel() color.Model { return XRGB8888Model }

func (p *XRGB8888) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return ARGB8888Color(0)
	}
	return p.ARGB8888At(x, y) | 0xFF000000
}

func (p *XRGB8888) Set(x, y int, c color.Color) {
	p.ARGB8888.Set(x, y, XRGB8888Model.Convert(c))
}

func (p *XRGB8888) SubImage(r image.Rectangle) draw.Image {
	sub := p.ARGB8888.SubImage(r).(*ARGB8888)
	return &XRGB8888{ARGB8888: *sub}
}

// Opaque reports whether every pixel of the image is opaque, which is
// always the case.
func (p *XRGB8888) Opaque() bool {
	return true
}
