package shm

import (
	"fmt"
	"image"
	"os"

	"deedles.dev/wlcompositor/internal/debug"
	"deedles.dev/wlcompositor/shm/shmimage"
	"golang.org/x/sys/unix"
)

// Pool is a region of memory shared with a client. The memory stays
// mapped until the pool and every buffer created from it have been
// destroyed.
type Pool struct {
	file      *os.File
	mmap      Mmap
	refs      int
	destroyed bool
}

// NewPool maps size bytes of file. The pool takes ownership of file.
func NewPool(file *os.File, size int32) (*Pool, error) {
	if size <= 0 {
		file.Close()
		return nil, &Error{Code: ErrorInvalidStride, Message: fmt.Sprintf("invalid pool size %v", size)}
	}

	mmap, err := MapShared(file, int(size), unix.PROT_READ)
	if err != nil {
		file.Close()
		return nil, &Error{Code: ErrorInvalidFD, Message: fmt.Sprintf("mmap pool: %v", err)}
	}

	return &Pool{
		file: file,
		mmap: mmap,
		refs: 1,
	}, nil
}

// Size returns the number of bytes in the pool.
func (p *Pool) Size() int {
	return len(p.mmap)
}

// Resize grows the pool to size bytes. Pools can not shrink.
func (p *Pool) Resize(size int32) error {
	if int(size) < len(p.mmap) {
		return &Error{Code: ErrorInvalidStride, Message: fmt.Sprintf("pool cannot shrink from %v to %v", len(p.mmap), size)}
	}
	if int(size) == len(p.mmap) {
		return nil
	}

	mmap, err := MapShared(p.file, int(size), unix.PROT_READ)
	if err != nil {
		return &Error{Code: ErrorInvalidFD, Message: fmt.Sprintf("remap pool: %v", err)}
	}
	if err := p.mmap.Unmap(); err != nil {
		debug.Log.Warn("unmap resized pool", "err", err)
	}
	p.mmap = mmap
	return nil
}

// CreateBuffer creates a buffer that shows part of the pool's memory.
func (p *Pool) CreateBuffer(offset, width, height, stride int32, format Format) (*Buffer, error) {
	if !format.Valid() {
		return nil, &Error{Code: ErrorInvalidFormat, Message: fmt.Sprintf("unsupported format %v", format)}
	}
	if (width <= 0) || (height <= 0) || (int64(stride) < int64(width)*4) || (offset < 0) {
		return nil, &Error{
			Code:    ErrorInvalidStride,
			Message: fmt.Sprintf("invalid buffer geometry: offset %v, %vx%v, stride %v", offset, width, height, stride),
		}
	}
	if size := int64(stride) * int64(height); int64(offset)+size > int64(len(p.mmap)) {
		return nil, &Error{
			Code:    ErrorInvalidStride,
			Message: fmt.Sprintf("buffer of %v bytes at %v does not fit in pool of %v bytes", size, offset, len(p.mmap)),
		}
	}

	p.refs++
	return &Buffer{
		pool:   p,
		offset: int(offset),
		width:  int(width),
		height: int(height),
		stride: int(stride),
		format: format,
	}, nil
}

// Destroy destroys the pool. Buffers created from it keep working.
func (p *Pool) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.unref()
}

func (p *Pool) unref() {
	p.refs--
	if p.refs > 0 {
		return
	}

	if err := p.mmap.Unmap(); err != nil {
		debug.Log.Warn("unmap pool", "err", err)
	}
	p.mmap = nil
	p.file.Close()
}

// Buffer is a rectangle of pixels inside a Pool.
type Buffer struct {
	pool      *Pool
	offset    int
	width     int
	height    int
	stride    int
	format    Format
	destroyed bool
}

func (b *Buffer) Size() image.Point {
	return image.Pt(b.width, b.height)
}

func (b *Buffer) Stride() int {
	return b.stride
}

func (b *Buffer) Format() Format {
	return b.format
}

// Image returns an image backed directly by the pool's memory. The
// image is only valid until the pool is next resized, and the client
// may change its contents at any time.
func (b *Buffer) Image() image.Image {
	if b.destroyed {
		return nil
	}

	rect := image.Rect(0, 0, b.width, b.height)
	pix := b.pool.mmap[b.offset : b.offset+b.stride*b.height]
	switch b.format {
	case FormatXRGB8888:
		return &shmimage.XRGB8888{ARGB8888: shmimage.ARGB8888{Pix: pix, Stride: b.stride, Rect: rect}}
	default:
		return &shmimage.ARGB8888{Pix: pix, Stride: b.stride, Rect: rect}
	}
}

// Destroy releases the buffer's hold on its pool.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.pool.unref()
}

func (b *Buffer) String() string {
	return fmt.Sprintf("shm buffer %vx%v %v", b.width, b.height, b.format)
}
