package compositor

import (
	"fmt"
	"image"
)

// Transform is a buffer transform as defined by wl_output.transform.
// It describes the rotation and flip that the client has already
// applied to the buffer contents relative to the surface.
type Transform int32

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

func (t Transform) Valid() bool {
	return (t >= TransformNormal) && (t <= TransformFlipped270)
}

// SwapsAxes reports whether t exchanges the width and height of a
// buffer.
func (t Transform) SwapsAxes() bool {
	switch t {
	case Transform90, Transform270, TransformFlipped90, TransformFlipped270:
		return true
	}
	return false
}

func (t Transform) String() string {
	switch t {
	case TransformNormal:
		return "normal"
	case Transform90:
		return "90"
	case Transform180:
		return "180"
	case Transform270:
		return "270"
	case TransformFlipped:
		return "flipped"
	case TransformFlipped90:
		return "flipped-90"
	case TransformFlipped180:
		return "flipped-180"
	case TransformFlipped270:
		return "flipped-270"
	}
	return fmt.Sprintf("Transform(%d)", int32(t))
}

// Orientation is the orientation a client declares its content was
// rendered for.
type Orientation int

const (
	OrientationPrimary Orientation = iota
	OrientationPortrait
	OrientationLandscape
	OrientationInvertedPortrait
	OrientationInvertedLandscape
)

// surfaceSize converts a buffer size into a surface size.
func surfaceSize(buf image.Point, scale int32, t Transform) image.Point {
	if t.SwapsAxes() {
		buf.X, buf.Y = buf.Y, buf.X
	}
	if scale > 1 {
		buf = buf.Div(int(scale))
	}
	return buf
}

// bufferPointToSurface maps a point in a w×h buffer into unscaled
// surface coordinates by undoing t.
func bufferPointToSurface(p image.Point, w, h int, t Transform) image.Point {
	switch t {
	case Transform90:
		return image.Pt(h-p.Y, p.X)
	case Transform180:
		return image.Pt(w-p.X, h-p.Y)
	case Transform270:
		return image.Pt(p.Y, w-p.X)
	case TransformFlipped:
		return image.Pt(w-p.X, p.Y)
	case TransformFlipped90:
		return image.Pt(p.Y, p.X)
	case TransformFlipped180:
		return image.Pt(p.X, h-p.Y)
	case TransformFlipped270:
		return image.Pt(h-p.Y, w-p.X)
	}
	return p
}

// bufferRectToSurface converts a rectangle in buffer coordinates into
// the smallest surface-coordinate rectangle covering it.
func bufferRectToSurface(r image.Rectangle, buf image.Point, scale int32, t Transform) image.Rectangle {
	min := bufferPointToSurface(r.Min, buf.X, buf.Y, t)
	max := bufferPointToSurface(r.Max, buf.X, buf.Y, t)
	r = image.Rectangle{Min: min, Max: max}.Canon()

	if scale > 1 {
		s := int(scale)
		r.Min = image.Pt(floorDiv(r.Min.X, s), floorDiv(r.Min.Y, s))
		r.Max = image.Pt(ceilDiv(r.Max.X, s), ceilDiv(r.Max.Y, s))
	}
	return r
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
