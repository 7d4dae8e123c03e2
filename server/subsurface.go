package wl

import (
	"fmt"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/wire"
)

const (
	subcompositorInterface = "wl_subcompositor"
	subcompositorVersion   = 1
)

var subcompositorMethods = []string{"destroy", "get_subsurface"}

// Subcompositor is a bound wl_subcompositor global.
type Subcompositor struct {
	object
}

func bindSubcompositor(client *Client, id, version uint32) {
	client.Add(&Subcompositor{object: object{client: client, id: id, version: version}})
}

func (obj *Subcompositor) Delete() {}

func (obj *Subcompositor) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		obj.client.Delete(obj.id)
		return nil

	case 1:
		sub := Subsurface{object: obj.child(msg.ReadUint())}
		sid, pid := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		surface, err := lookup[*Surface](obj.client, surfaceInterface, sid)
		if err != nil {
			return err
		}
		parent, err := lookup[*Surface](obj.client, surfaceInterface, pid)
		if err != nil {
			return err
		}
		if err := obj.client.checkNewID(sub.id); err != nil {
			return err
		}

		sub.sub, err = obj.client.server.compositor.CreateSubsurface(surface.surface, parent.surface)
		if err != nil {
			return err
		}
		return obj.client.addNew(&sub)

	default:
		return unknownOp(subcompositorInterface, msg)
	}
}

func (obj *Subcompositor) MethodName(op uint16) string {
	return methodName(subcompositorMethods, op)
}

func (obj *Subcompositor) String() string {
	return fmt.Sprintf("%v@%v", subcompositorInterface, obj.id)
}

const subsurfaceInterface = "wl_subsurface"

var subsurfaceMethods = []string{
	"destroy",
	"set_position",
	"place_above",
	"place_below",
	"set_sync",
	"set_desync",
}

// Subsurface is a wl_subsurface.
type Subsurface struct {
	object
	sub *compositor.Subsurface
}

func (obj *Subsurface) Delete() {
	obj.sub.Destroy()
}

func (obj *Subsurface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		obj.client.Delete(obj.id)
		return nil

	case 1:
		x, y := msg.ReadInt(), msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		obj.sub.SetPosition(x, y)
		return nil

	case 2, 3:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}

		sibling, err := lookup[*Surface](obj.client, surfaceInterface, id)
		if err != nil {
			return err
		}
		if msg.Op() == 2 {
			return obj.sub.PlaceAbove(sibling.surface)
		}
		return obj.sub.PlaceBelow(sibling.surface)

	case 4:
		obj.sub.SetSync()
		return nil

	case 5:
		obj.sub.SetDesync()
		return nil

	default:
		return unknownOp(subsurfaceInterface, msg)
	}
}

func (obj *Subsurface) MethodName(op uint16) string {
	return methodName(subsurfaceMethods, op)
}

func (obj *Subsurface) String() string {
	return fmt.Sprintf("%v@%v", subsurfaceInterface, obj.id)
}
