package wl

import (
	"fmt"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/wire"
)

// object holds the state shared by every protocol object.
type object struct {
	client  *Client
	id      uint32
	version uint32
}

func (obj *object) ID() uint32 {
	return obj.id
}

func (obj *object) SetID(id uint32) {
	obj.id = id
}

func (obj *object) Client() *Client {
	return obj.client
}

func (obj *object) Version() uint32 {
	return obj.version
}

// child returns the common state of an object created by a request
// sent to obj. It inherits obj's version.
func (obj *object) child(id uint32) object {
	return object{client: obj.client, id: id, version: obj.version}
}

// newEvent starts an event message. method and args are only used for
// debugging output.
func newEvent(sender wire.Object, op uint16, method string, args ...any) *wire.MessageBuilder {
	msg := wire.NewMessage(sender, op)
	msg.Method = method
	msg.Args = args
	return msg
}

func methodName(names []string, op uint16) string {
	if int(op) >= len(names) {
		return fmt.Sprintf("unknown(%v)", op)
	}
	return names[op]
}

func unknownOp(iface string, msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{Interface: iface, Op: msg.Op()}
}

// lookup finds the object with the given ID, which must be of type T.
func lookup[T wire.Object](client *Client, iface string, id uint32) (T, error) {
	obj, ok := client.Get(id).(T)
	if !ok {
		return obj, &compositor.ProtocolError{
			Interface: "wl_display",
			Code:      compositor.DisplayErrorInvalidObject,
			Message:   fmt.Sprintf("object %v is not a %v", id, iface),
		}
	}
	return obj, nil
}
