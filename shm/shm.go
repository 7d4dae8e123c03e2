// Package shm implements the server side of wl_shm: pools of memory
// shared with a client through a file descriptor, and the buffers that
// clients carve out of them.
package shm

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Format is a wl_shm pixel format.
type Format uint32

const (
	FormatARGB8888 Format = 0
	FormatXRGB8888 Format = 1
)

// Formats lists the formats that buffers may use.
var Formats = []Format{FormatARGB8888, FormatXRGB8888}

func (f Format) Valid() bool {
	return (f == FormatARGB8888) || (f == FormatXRGB8888)
}

func (f Format) String() string {
	switch f {
	case FormatARGB8888:
		return "argb8888"
	case FormatXRGB8888:
		return "xrgb8888"
	default:
		return fmt.Sprintf("format(%#x)", uint32(f))
	}
}

// Error codes of wl_shm.
const (
	ErrorInvalidFormat uint32 = iota
	ErrorInvalidStride
	ErrorInvalidFD
)

// Error is a client mistake in a wl_shm or wl_shm_pool request.
type Error struct {
	Code    uint32
	Message string
}

func (err *Error) Error() string {
	return err.Message
}

// Create creates an anonymous file in shared memory.
func Create() (*os.File, error) {
	path := fmt.Sprintf("/dev/shm/wlcompositor-%v-%v", os.Getpid(), time.Now().UnixNano())

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	return file, os.Remove(path)
}

type Mmap []byte

// MapShared maps size bytes of file into memory.
func MapShared(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})
	if cerr != nil {
		return nil, cerr
	}

	return mmap, err
}

func (mmap Mmap) Unmap() error {
	if mmap == nil {
		return nil
	}
	return unix.Munmap(mmap)
}
