// Package softtex is a software GraphicsIntegration. Textures are plain
// in-memory copies of buffer contents, and surfaces are composed into
// an ordinary draw.Image.
package softtex

import (
	"errors"
	"fmt"
	"image"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/ximage/format"
	"golang.org/x/image/draw"
)

// ErrUnsupportedHandle is returned when a buffer handle does not
// provide an image to copy from.
var ErrUnsupportedHandle = errors.New("unsupported buffer handle")

// Imager is a buffer handle whose contents can be read as an image.
type Imager interface {
	Image() image.Image
}

// Renderer keeps textures in memory.
type Renderer struct {
	textures map[compositor.TextureID]*format.Image
	next     compositor.TextureID
}

func New() *Renderer {
	return &Renderer{
		textures: make(map[compositor.TextureID]*format.Image),
	}
}

func handleImage(handle any) (image.Image, error) {
	imager, ok := handle.(Imager)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedHandle, handle)
	}
	img := imager.Image()
	if img == nil {
		return nil, compositor.ErrDestroyed
	}
	return img, nil
}

func (r *Renderer) CreateTextureFromBuffer(handle any) (compositor.TextureID, error) {
	src, err := handleImage(handle)
	if err != nil {
		return 0, err
	}

	bounds := src.Bounds()
	tex := &format.Image{
		Format: format.ARGB8888,
		Rect:   bounds,
		Pix:    make([]byte, bounds.Dx()*bounds.Dy()*4),
	}
	draw.Copy(tex, bounds.Min, src, bounds, draw.Src, nil)

	r.next++
	r.textures[r.next] = tex
	return r.next, nil
}

func (r *Renderer) DestroyTexture(id compositor.TextureID) {
	delete(r.textures, id)
}

// Update copies the damaged part of a buffer into an existing texture.
func (r *Renderer) Update(id compositor.TextureID, handle any, damage image.Rectangle) error {
	tex, ok := r.textures[id]
	if !ok {
		return fmt.Errorf("update texture %v: no such texture", id)
	}
	src, err := handleImage(handle)
	if err != nil {
		return fmt.Errorf("update texture %v: %w", id, err)
	}

	damage = damage.Intersect(tex.Rect).Intersect(src.Bounds())
	if damage.Empty() {
		return nil
	}
	draw.Copy(tex, damage.Min, src, damage, draw.Src, nil)
	return nil
}

// Texture returns the image stored for a texture, or nil if there is
// no such texture.
func (r *Renderer) Texture(id compositor.TextureID) image.Image {
	tex, ok := r.textures[id]
	if !ok {
		return nil
	}
	return tex
}

// Len returns the number of live textures.
func (r *Renderer) Len() int {
	return len(r.textures)
}
