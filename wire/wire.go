// Package wire implements the Wayland wire protocol: message framing,
// argument encoding and the passing of file descriptors over Unix
// domain sockets.
package wire

// Object represents a Wayland protocol object.
type Object interface {
	// ID returns the object's ID within its connection.
	ID() uint32

	// SetID assigns an ID to an object that was created without one.
	SetID(id uint32)

	// Delete is called when the object is removed from its connection's
	// object store.
	Delete()

	// Dispatch pertforms the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// MethodName returns the name of the request with the given
	// opcode, for debugging.
	MethodName(op uint16) string
}

// NewID is a new_id argument without a fixed interface, as used by
// wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

// maxFDs is the largest number of file descriptors that a single
// message may carry.
const maxFDs = 28
