package wl

import (
	"fmt"
	"image"
	"math"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/wire"
)

const (
	viewporterInterface = "wp_viewporter"
	viewporterVersion   = 1
)

// Error codes of wp_viewporter.
const (
	ViewporterErrorViewportExists uint32 = 0
)

// Error codes of wp_viewport.
const (
	ViewportErrorBadValue uint32 = iota
	ViewportErrorBadSize
	ViewportErrorOutOfBuffer
	ViewportErrorNoSurface
)

var viewporterMethods = []string{"destroy", "get_viewport"}

// Viewporter is a bound wp_viewporter global.
type Viewporter struct {
	object
}

func bindViewporter(client *Client, id, version uint32) {
	client.Add(&Viewporter{object: object{client: client, id: id, version: version}})
}

func (obj *Viewporter) Delete() {}

func (obj *Viewporter) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		obj.client.Delete(obj.id)
		return nil

	case 1:
		vp := Viewport{object: obj.child(msg.ReadUint())}
		sid := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		surface, err := lookup[*Surface](obj.client, surfaceInterface, sid)
		if err != nil {
			return err
		}
		if surface.viewport != nil {
			return &compositor.ProtocolError{
				Interface: viewporterInterface,
				Code:      ViewporterErrorViewportExists,
				Message:   fmt.Sprintf("%v already has a viewport", surface),
			}
		}
		if err := obj.client.addNew(&vp); err != nil {
			return err
		}
		vp.surface = surface
		surface.viewport = &vp
		return nil

	default:
		return unknownOp(viewporterInterface, msg)
	}
}

func (obj *Viewporter) MethodName(op uint16) string {
	return methodName(viewporterMethods, op)
}

func (obj *Viewporter) String() string {
	return fmt.Sprintf("%v@%v", viewporterInterface, obj.id)
}

const viewportInterface = "wp_viewport"

var viewportMethods = []string{"destroy", "set_source", "set_destination"}

// Viewport is a wp_viewport. It crops and scales a surface by setting
// its source geometry and destination size.
type Viewport struct {
	object
	surface *Surface
}

// Delete resets the surface's viewport state. As with the rest of the
// surface's state, the reset takes effect on the next commit.
func (obj *Viewport) Delete() {
	if obj.surface == nil {
		return
	}
	obj.surface.surface.SetSourceGeometry(image.Rectangle{})
	obj.surface.surface.SetDestinationSize(image.Point{})
	obj.surface.viewport = nil
	obj.surface = nil
}

func (obj *Viewport) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		obj.client.Delete(obj.id)
		return nil

	case 1:
		x, y, w, h := msg.ReadFixed(), msg.ReadFixed(), msg.ReadFixed(), msg.ReadFixed()
		if err := msg.Err(); err != nil {
			return err
		}
		if err := obj.checkSurface(); err != nil {
			return err
		}

		unset := wire.FixedInt(-1)
		if (x == unset) && (y == unset) && (w == unset) && (h == unset) {
			obj.surface.surface.SetSourceGeometry(image.Rectangle{})
			return nil
		}
		if (x < 0) || (y < 0) || (w <= 0) || (h <= 0) {
			return &compositor.ProtocolError{
				Interface: viewportInterface,
				Code:      ViewportErrorBadValue,
				Message:   fmt.Sprintf("invalid source rectangle %v,%v %vx%v", x, y, w, h),
			}
		}

		obj.surface.surface.SetSourceGeometry(sourceRect(x, y, w, h))
		return nil

	case 2:
		w, h := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if err := obj.checkSurface(); err != nil {
			return err
		}

		if (w == -1) && (h == -1) {
			obj.surface.surface.SetDestinationSize(image.Point{})
			return nil
		}
		if (w <= 0) || (h <= 0) {
			return &compositor.ProtocolError{
				Interface: viewportInterface,
				Code:      ViewportErrorBadValue,
				Message:   fmt.Sprintf("invalid destination size %vx%v", w, h),
			}
		}

		obj.surface.surface.SetDestinationSize(image.Pt(int(w), int(h)))
		return nil

	default:
		return unknownOp(viewportInterface, msg)
	}
}

func (obj *Viewport) checkSurface() error {
	if obj.surface == nil {
		return &compositor.ProtocolError{
			Interface: viewportInterface,
			Code:      ViewportErrorNoSurface,
			Message:   "surface has been destroyed",
		}
	}
	return nil
}

// sourceRect returns the smallest integer rectangle that contains the
// given fixed-point rectangle.
func sourceRect(x, y, w, h wire.Fixed) image.Rectangle {
	return image.Rect(
		int(math.Floor(x.Float())),
		int(math.Floor(y.Float())),
		int(math.Ceil((x + w).Float())),
		int(math.Ceil((y + h).Float())),
	)
}

func (obj *Viewport) MethodName(op uint16) string {
	return methodName(viewportMethods, op)
}

func (obj *Viewport) String() string {
	return fmt.Sprintf("%v@%v", viewportInterface, obj.id)
}
