package softtex

import (
	"image"
	"image/color"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/internal/debug"
	"golang.org/x/image/draw"
)

// Output composes the surfaces of a compositor into an image. It keeps
// one view per surface so that every buffer it shows stays alive until
// it has moved on to the next one.
type Output struct {
	renderer   *Renderer
	img        *image.RGBA
	background image.Image
	views      map[compositor.SurfaceID]*compositor.View

	// Upload controls whether buffer contents are copied into textures
	// and drawn. With it off, buffers are still latched and marked as
	// displayed, so clients see normal release and frame timing.
	Upload bool
}

// NewOutput returns an output of the given size that uses r for
// textures. r must be the GraphicsIntegration of every compositor
// rendered to the output.
func NewOutput(r *Renderer, size image.Point) *Output {
	return &Output{
		renderer:   r,
		img:        image.NewRGBA(image.Rectangle{Max: size}),
		background: image.NewUniform(color.Black),
		views:      make(map[compositor.SurfaceID]*compositor.View),
		Upload:     true,
	}
}

// Image returns the most recently rendered frame.
func (o *Output) Image() *image.RGBA {
	return o.img
}

// Render draws every surface that is not a sub-surface, in creation
// order, each followed by its sub-surfaces in stacking order.
func (o *Output) Render(c *compositor.Compositor) {
	draw.Draw(o.img, o.img.Bounds(), o.background, image.Point{}, draw.Src)

	for _, s := range c.Surfaces() {
		if s.Subsurface() != nil {
			continue
		}
		o.drawTree(s, image.Point{})
	}
}

func (o *Output) drawTree(s *compositor.Surface, at image.Point) {
	for _, ss := range s.Stack() {
		if ss == s {
			o.drawSurface(s, at)
			continue
		}
		if sub := ss.Subsurface(); sub != nil {
			o.drawTree(ss, at.Add(sub.Position()))
		}
	}
}

func (o *Output) drawSurface(s *compositor.Surface, at image.Point) {
	v := o.view(s)
	v.Advance()
	buf := v.Buffer()
	if buf == nil {
		return
	}
	defer s.TakeDamage()

	if !o.Upload {
		buf.SetDisplayed()
		return
	}

	tex, err := buf.Texture()
	if err != nil {
		debug.Log.Warn("create texture", "surface", s, "err", err)
		return
	}
	if !buf.IsDisplayed() {
		if err := o.renderer.Update(tex, buf.Handle(), buf.Damage()); err != nil {
			debug.Log.Warn("upload texture", "surface", s, "err", err)
		}
		buf.SetDisplayed()
	}

	src := o.renderer.Texture(tex)
	if src == nil {
		return
	}

	scale := int(s.BufferScale())
	geom := s.SourceGeometry()
	sr := image.Rectangle{Min: geom.Min.Mul(scale), Max: geom.Max.Mul(scale)}.Intersect(src.Bounds())
	dr := image.Rectangle{Max: s.Size()}.Add(at)
	if sr.Size() == dr.Size() {
		draw.Draw(o.img, dr, src, sr.Min, draw.Over)
		return
	}
	draw.ApproxBiLinear.Scale(o.img, dr, src, sr, draw.Over, nil)
}

func (o *Output) view(s *compositor.Surface) *compositor.View {
	if v, ok := o.views[s.ID()]; ok {
		return v
	}

	v := s.NewView()
	id := s.ID()
	v.SurfaceDestroyed = func() {
		delete(o.views, id)
		v.Release()
	}
	o.views[id] = v
	return v
}

// Close releases every view held by the output.
func (o *Output) Close() {
	for id, v := range o.views {
		v.Release()
		delete(o.views, id)
	}
}
