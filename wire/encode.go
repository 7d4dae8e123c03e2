package wire

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unsafe"

	"deedles.dev/wlcompositor/internal/bin"
	"golang.org/x/sys/unix"
)

// maxMessageSize is the largest message that fits the 16-bit size
// field of the header.
const maxMessageSize = 0xFFFF

// MessageBuilder accumulates the arguments of an outgoing message. The
// first error that happens while writing arguments is kept and
// returned by Build.
type MessageBuilder struct {
	// Method and Args describe the message for debugging output. They
	// are not sent.
	Method string
	Args   []any

	sender Object
	op     uint16
	data   []byte
	fds    []int
	err    error
}

// NewMessage starts a message from sender with the given opcode.
func NewMessage(sender Object, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
		data:   make([]byte, 8, 32),
	}
}

func (mb *MessageBuilder) Sender() Object {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) word(v [4]byte) {
	if mb.err != nil {
		return
	}
	mb.data = append(mb.data, v[:]...)
}

func (mb *MessageBuilder) bytes(v []byte) {
	if mb.err != nil {
		return
	}
	mb.data = append(mb.data, v...)
	for i := bin.Pad(len(v)); i > 0; i-- {
		mb.data = append(mb.data, 0)
	}
}

func (mb *MessageBuilder) WriteInt(v int32) {
	mb.word(bin.Bytes(v))
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	mb.word(bin.Bytes(v))
}

func (mb *MessageBuilder) WriteFixed(v Fixed) {
	mb.word(bin.Bytes(v))
}

// WriteObject writes the ID of v, or the null object if v is nil.
func (mb *MessageBuilder) WriteObject(v Object) {
	var id uint32
	if !isNil(v) {
		id = v.ID()
	}
	mb.WriteUint(id)
}

// WriteNewID writes a new_id argument whose interface is not fixed by
// the protocol.
func (mb *MessageBuilder) WriteNewID(v NewID) {
	mb.WriteString(v.Interface)
	mb.WriteUint(v.Version)
	mb.WriteUint(v.ID)
}

// WriteString writes v with its terminating NUL byte.
func (mb *MessageBuilder) WriteString(v string) {
	mb.WriteUint(uint32(len(v) + 1))
	mb.bytes(append([]byte(v), 0))
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	mb.WriteUint(uint32(len(v)))
	mb.bytes(v)
}

// WriteFile attaches a duplicate of v's file descriptor to the
// message. The caller keeps ownership of v.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	if mb.err != nil {
		return
	}
	if len(mb.fds) >= maxFDs {
		mb.err = errors.New("too many file descriptors")
		return
	}

	fd, err := unix.Dup(int(v.Fd()))
	if err != nil {
		mb.err = fmt.Errorf("dup: %w", err)
		return
	}
	mb.fds = append(mb.fds, fd)
}

// Build fills in the header and sends the message to c. The builder
// must not be used afterwards.
func (mb *MessageBuilder) Build(c *Conn) error {
	defer mb.Discard()

	if mb.err != nil {
		return mb.err
	}
	if len(mb.data) > maxMessageSize {
		return fmt.Errorf("message too large: %v bytes", len(mb.data))
	}

	bin.Put(mb.data[0:], mb.sender.ID())
	bin.Put(mb.data[4:], uint32(len(mb.data))<<16|uint32(mb.op))
	return c.WriteMessage(mb.data, mb.fds)
}

// Discard closes any file descriptors attached to the message. It is
// called by Build and only needs to be called directly for messages
// that are never sent.
func (mb *MessageBuilder) Discard() {
	for _, fd := range mb.fds {
		unix.Close(fd)
	}
	mb.fds = nil
}

func (mb *MessageBuilder) String() string {
	args := make([]string, 0, len(mb.Args))
	for _, arg := range mb.Args {
		args = append(args, formatArg(arg))
	}

	return fmt.Sprintf("%v.%v(%v)", mb.sender, mb.Method, strings.Join(args, ", "))
}

func isNil(v any) bool {
	return (v == nil) || ((*[2]uintptr)(unsafe.Pointer(&v))[1] == 0)
}
