// Package region implements sets of pixels described by rectangles.
//
// A Region stores its area as a list of pairwise disjoint rectangles,
// so unions and subtractions are exact: no rectangle is ever widened to
// cover more than the pixels that were added to it.
package region

import (
	"fmt"
	"image"
	"strings"
)

// Region is a set of pixels. The zero value is an empty region ready
// for use.
type Region struct {
	rects []image.Rectangle
}

// Rect returns a new region containing exactly r.
func Rect(r image.Rectangle) *Region {
	var reg Region
	reg.Add(r)
	return &reg
}

// XYWH converts a protocol-style rectangle into an image.Rectangle.
// Rectangles with a non-positive width or height yield an empty
// rectangle.
func XYWH(x, y, w, h int32) image.Rectangle {
	if (w <= 0) || (h <= 0) {
		return image.Rectangle{}
	}
	return image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h))
}

// Clone returns an independent copy of r. A nil receiver clones to an
// empty region.
func (r *Region) Clone() *Region {
	if r == nil {
		return new(Region)
	}
	return &Region{rects: append([]image.Rectangle(nil), r.rects...)}
}

// Clear removes everything from the region.
func (r *Region) Clear() {
	r.rects = r.rects[:0]
}

// Empty reports whether the region contains no pixels.
func (r *Region) Empty() bool {
	return (r == nil) || (len(r.rects) == 0)
}

// Rects returns a copy of the disjoint rectangles making up the region.
func (r *Region) Rects() []image.Rectangle {
	if r == nil {
		return nil
	}
	return append([]image.Rectangle(nil), r.rects...)
}

// Bounds returns the smallest rectangle containing the whole region.
func (r *Region) Bounds() (b image.Rectangle) {
	if r == nil {
		return b
	}
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Area returns the number of pixels in the region.
func (r *Region) Area() (area int) {
	if r == nil {
		return 0
	}
	for _, rect := range r.rects {
		area += rect.Dx() * rect.Dy()
	}
	return area
}

// Contains reports whether p is inside the region.
func (r *Region) Contains(p image.Point) bool {
	if r == nil {
		return false
	}
	for _, rect := range r.rects {
		if p.In(rect) {
			return true
		}
	}
	return false
}

// Add adds the pixels of rect to the region. Empty rectangles are
// ignored.
func (r *Region) Add(rect image.Rectangle) {
	rect = rect.Canon()
	if rect.Empty() {
		return
	}

	pieces := []image.Rectangle{rect}
	for _, existing := range r.rects {
		pieces = subtractAll(pieces, existing)
		if len(pieces) == 0 {
			return
		}
	}
	r.rects = append(r.rects, pieces...)
}

// Subtract removes the pixels of rect from the region.
func (r *Region) Subtract(rect image.Rectangle) {
	rect = rect.Canon()
	if rect.Empty() || (len(r.rects) == 0) {
		return
	}

	r.rects = subtractAll(r.rects, rect)
}

// Union adds every pixel of o to r.
func (r *Region) Union(o *Region) {
	if o == nil {
		return
	}
	for _, rect := range o.rects {
		r.Add(rect)
	}
}

// SubtractRegion removes every pixel of o from r.
func (r *Region) SubtractRegion(o *Region) {
	if o == nil {
		return
	}
	for _, rect := range o.rects {
		r.Subtract(rect)
	}
}

// Intersect limits the region to the pixels inside rect.
func (r *Region) Intersect(rect image.Rectangle) {
	rects := r.rects[:0]
	for _, existing := range r.rects {
		i := existing.Intersect(rect)
		if !i.Empty() {
			rects = append(rects, i)
		}
	}
	r.rects = rects
}

// Translate moves the region by d.
func (r *Region) Translate(d image.Point) {
	for i := range r.rects {
		r.rects[i] = r.rects[i].Add(d)
	}
}

// Equal reports whether r and o contain exactly the same pixels,
// regardless of how either is split into rectangles.
func (r *Region) Equal(o *Region) bool {
	if r.Area() != o.Area() {
		return false
	}

	diff := r.Clone()
	diff.SubtractRegion(o)
	return diff.Empty()
}

func (r *Region) String() string {
	if r.Empty() {
		return "{}"
	}

	var sb strings.Builder
	sb.WriteByte('{')
	for i, rect := range r.rects {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "(%v,%v %vx%v)", rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())
	}
	sb.WriteByte('}')
	return sb.String()
}

func subtractAll(rects []image.Rectangle, cut image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(rects))
	for _, rect := range rects {
		out = appendDifference(out, rect, cut)
	}
	return out
}

// appendDifference appends a-b to dst as at most four disjoint
// rectangles: full-width bands above and below the overlap and the
// pieces left and right of it.
func appendDifference(dst []image.Rectangle, a, b image.Rectangle) []image.Rectangle {
	if !a.Overlaps(b) {
		return append(dst, a)
	}
	i := a.Intersect(b)

	parts := [...]image.Rectangle{
		image.Rect(a.Min.X, a.Min.Y, a.Max.X, i.Min.Y),
		image.Rect(a.Min.X, i.Max.Y, a.Max.X, a.Max.Y),
		image.Rect(a.Min.X, i.Min.Y, i.Min.X, i.Max.Y),
		image.Rect(i.Max.X, i.Min.Y, a.Max.X, i.Max.Y),
	}
	for _, p := range parts {
		if !p.Empty() {
			dst = append(dst, p)
		}
	}
	return dst
}
