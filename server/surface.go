package wl

import (
	"fmt"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/region"
	"deedles.dev/wlcompositor/wire"
)

const (
	compositorInterface = "wl_compositor"
	compositorVersion   = 5
)

var compositorMethods = []string{"create_surface", "create_region"}

// Compositor is a bound wl_compositor global.
type Compositor struct {
	object
}

func bindCompositor(client *Client, id, version uint32) {
	client.Add(&Compositor{object: object{client: client, id: id, version: version}})
}

func (obj *Compositor) Delete() {}

func (obj *Compositor) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		surface := Surface{object: obj.child(msg.ReadUint())}
		if err := msg.Err(); err != nil {
			return err
		}
		if err := obj.client.checkNewID(surface.id); err != nil {
			return err
		}
		surface.surface = obj.client.server.compositor.CreateSurface(obj.client.core)
		obj.client.Add(&surface)
		return nil

	case 1:
		r := Region{object: obj.child(msg.ReadUint())}
		if err := msg.Err(); err != nil {
			return err
		}
		return obj.client.addNew(&r)

	default:
		return unknownOp(compositorInterface, msg)
	}
}

func (obj *Compositor) MethodName(op uint16) string {
	return methodName(compositorMethods, op)
}

func (obj *Compositor) String() string {
	return fmt.Sprintf("%v@%v", compositorInterface, obj.id)
}

const surfaceInterface = "wl_surface"

var surfaceMethods = []string{
	"destroy",
	"attach",
	"damage",
	"frame",
	"set_opaque_region",
	"set_input_region",
	"commit",
	"set_buffer_transform",
	"set_buffer_scale",
	"damage_buffer",
	"offset",
}

// Surface is a wl_surface.
type Surface struct {
	object
	surface  *compositor.Surface
	viewport *Viewport
}

// Surface returns the compositor surface that obj controls.
func (obj *Surface) Surface() *compositor.Surface {
	return obj.surface
}

func (obj *Surface) Delete() {
	if obj.viewport != nil {
		obj.viewport.surface = nil
		obj.viewport = nil
	}
	obj.surface.Destroy()
}

func (obj *Surface) Dispatch(msg *wire.MessageBuffer) error {
	s := obj.surface
	switch msg.Op() {
	case 0:
		obj.client.Delete(obj.id)
		return nil

	case 1:
		id := msg.ReadUint()
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		if (obj.version >= 5) && ((x != 0) || (y != 0)) {
			return &compositor.ProtocolError{
				Interface: surfaceInterface,
				Code:      compositor.SurfaceErrorInvalidOffset,
				Message:   "attach offset must be zero, use offset instead",
			}
		}

		var res compositor.BufferResource
		if id != 0 {
			buf, err := lookup[*Buffer](obj.client, bufferInterface, id)
			if err != nil {
				return err
			}
			res = buf
		}
		s.Attach(res, x, y)
		return nil

	case 2:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		s.DamageSurface(x, y, w, h)
		return nil

	case 3:
		cb := newCallback(obj.child(msg.ReadUint()))
		if err := msg.Err(); err != nil {
			return err
		}
		if err := obj.client.addNew(cb); err != nil {
			return err
		}
		cb.frame = s.Frame(cb)
		return nil

	case 4, 5:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		var r *region.Region
		if id != 0 {
			reg, err := lookup[*Region](obj.client, regionInterface, id)
			if err != nil {
				return err
			}
			r = &reg.region
		}

		if msg.Op() == 4 {
			s.SetOpaqueRegion(r)
		} else {
			s.SetInputRegion(r)
		}
		return nil

	case 6:
		return s.Commit()

	case 7:
		t := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		return s.SetBufferTransform(compositor.Transform(t))

	case 8:
		scale := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		return s.SetBufferScale(scale)

	case 9:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		s.DamageBuffer(x, y, w, h)
		return nil

	case 10:
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		s.SetOffset(x, y)
		return nil

	default:
		return unknownOp(surfaceInterface, msg)
	}
}

func (obj *Surface) MethodName(op uint16) string {
	return methodName(surfaceMethods, op)
}

func (obj *Surface) String() string {
	return fmt.Sprintf("%v@%v", surfaceInterface, obj.id)
}

const regionInterface = "wl_region"

var regionMethods = []string{"destroy", "add", "subtract"}

// Region is a wl_region. Surfaces copy a region's contents when it is
// set, so later changes to the region do not affect them.
type Region struct {
	object
	region region.Region
}

func (obj *Region) Delete() {}

func (obj *Region) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		obj.client.Delete(obj.id)
		return nil

	case 1, 2:
		x, y, w, h := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		r := region.XYWH(x, y, w, h)
		if msg.Op() == 1 {
			obj.region.Add(r)
		} else {
			obj.region.Subtract(r)
		}
		return nil

	default:
		return unknownOp(regionInterface, msg)
	}
}

func (obj *Region) MethodName(op uint16) string {
	return methodName(regionMethods, op)
}

func (obj *Region) String() string {
	return fmt.Sprintf("%v@%v", regionInterface, obj.id)
}
