package wl

import (
	"fmt"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/internal/debug"
	"deedles.dev/wlcompositor/wire"
)

const displayInterface = "wl_display"

var displayMethods = []string{"sync", "get_registry"}

// Display is the wl_display singleton that every connection starts
// with.
type Display struct {
	object
}

func (obj *Display) Delete() {}

func (obj *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		cb := newCallback(obj.child(msg.ReadUint()))
		if err := msg.Err(); err != nil {
			return err
		}
		if err := obj.client.addNew(cb); err != nil {
			return err
		}
		cb.Done(obj.client.server.nextSerial())
		return nil

	case 1:
		reg := Registry{object: obj.child(msg.ReadUint())}
		if err := msg.Err(); err != nil {
			return err
		}
		if err := obj.client.addNew(&reg); err != nil {
			return err
		}
		for _, g := range obj.client.server.globals {
			reg.global(g)
		}
		return nil

	default:
		return unknownOp(displayInterface, msg)
	}
}

func (obj *Display) MethodName(op uint16) string {
	return methodName(displayMethods, op)
}

func (obj *Display) postError(id, code uint32, message string) {
	msg := newEvent(obj, 0, "error", id, code, message)
	msg.WriteUint(id)
	msg.WriteUint(code)
	msg.WriteString(message)
	obj.client.Send(msg)
}

func (obj *Display) deleteID(id uint32) {
	msg := newEvent(obj, 1, "delete_id", id)
	msg.WriteUint(id)
	obj.client.Send(msg)
}

func (obj *Display) String() string {
	return fmt.Sprintf("%v@%v", displayInterface, obj.id)
}

const registryInterface = "wl_registry"

var registryMethods = []string{"bind"}

// Registry announces the server's globals and binds them on request.
type Registry struct {
	object
}

func (obj *Registry) Delete() {}

func (obj *Registry) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		name := msg.ReadUint()
		id := msg.ReadNewID()
		if err := msg.Err(); err != nil {
			return err
		}

		g, ok := obj.client.server.global(name)
		if !ok || (g.iface != id.Interface) || (id.Version == 0) || (id.Version > g.version) {
			return &compositor.ProtocolError{
				Interface: displayInterface,
				Code:      compositor.DisplayErrorInvalidObject,
				Message:   fmt.Sprintf("invalid global %v (%v v%v)", name, id.Interface, id.Version),
			}
		}
		if err := obj.client.checkNewID(id.ID); err != nil {
			return err
		}

		debug.Printf("bind %v v%v as %v", g.iface, id.Version, id.ID)
		g.bind(obj.client, id.ID, id.Version)
		return nil

	default:
		return unknownOp(registryInterface, msg)
	}
}

func (obj *Registry) MethodName(op uint16) string {
	return methodName(registryMethods, op)
}

func (obj *Registry) global(g global) {
	msg := newEvent(obj, 0, "global", g.name, g.iface, g.version)
	msg.WriteUint(g.name)
	msg.WriteString(g.iface)
	msg.WriteUint(g.version)
	obj.client.Send(msg)
}

func (obj *Registry) String() string {
	return fmt.Sprintf("%v@%v", registryInterface, obj.id)
}

const callbackInterface = "wl_callback"

// Callback is a wl_callback. It is used both for wl_display.sync and
// for surface frame callbacks, and is destroyed once it has fired.
type Callback struct {
	object
	frame *compositor.FrameCallback
	done  bool
}

func newCallback(obj object) *Callback {
	return &Callback{object: obj}
}

// Done sends the done event and destroys the callback.
func (obj *Callback) Done(data uint32) {
	if obj.done {
		return
	}
	obj.done = true

	msg := newEvent(obj, 0, "done", data)
	msg.WriteUint(data)
	obj.client.Send(msg)
	obj.client.Delete(obj.id)
}

func (obj *Callback) Delete() {
	if obj.frame != nil {
		obj.frame.Destroy()
		obj.frame = nil
	}
}

func (obj *Callback) Dispatch(msg *wire.MessageBuffer) error {
	return unknownOp(callbackInterface, msg)
}

func (obj *Callback) MethodName(op uint16) string {
	return methodName(nil, op)
}

func (obj *Callback) String() string {
	return fmt.Sprintf("%v@%v", callbackInterface, obj.id)
}
