package wire

import "fmt"

// UnknownOpError is returned by Object.Dispatch for messages whose
// opcode is not a request of the object's interface.
type UnknownOpError struct {
	Interface string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("%v has no request with opcode %v", err.Interface, err.Op)
}

// UnknownObjectError is the error for a message sent to an object ID
// that the receiver does not know about.
type UnknownObjectError struct {
	ID uint32
}

func (err UnknownObjectError) Error() string {
	return fmt.Sprintf("unknown object %v", err.ID)
}
