// Package bin reads and writes the 32-bit words that Wayland messages
// and shared-memory pixels are made of. Words are always in host byte
// order.
package bin

import (
	"io"
	"unsafe"
)

// Word is a type that is stored as a single 32-bit word.
type Word interface {
	~int32 | ~uint32
}

func Bytes[T Word](v T) [4]byte {
	return *(*[4]byte)(unsafe.Pointer(&v))
}

func Value[T Word](data [4]byte) T {
	return *(*T)(unsafe.Pointer(&data))
}

// Get decodes the word at the start of b, which must be at least four
// bytes long.
func Get[T Word](b []byte) T {
	return Value[T](([4]byte)(b[:4]))
}

// Put encodes v into the first four bytes of b.
func Put[T Word](b []byte, v T) {
	data := Bytes(v)
	copy(b[:4], data[:])
}

// Pad returns the number of bytes needed after n bytes of data to reach
// a word boundary.
func Pad[T ~int | ~uint32](n T) T {
	return (4 - n%4) % 4
}

func Read[T Word](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

func Write[T Word](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}
