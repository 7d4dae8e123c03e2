package wl

import (
	"errors"
	"fmt"
	"image"

	"deedles.dev/wlcompositor/compositor"
	"deedles.dev/wlcompositor/shm"
	"deedles.dev/wlcompositor/wire"
)

const (
	shmInterface = "wl_shm"
	shmVersion   = 1
)

var shmMethods = []string{"create_pool"}

// shmError converts errors from the shm package into protocol errors.
func shmError(err error) error {
	var serr *shm.Error
	if errors.As(err, &serr) {
		return &compositor.ProtocolError{Interface: shmInterface, Code: serr.Code, Message: serr.Message}
	}
	return err
}

// Shm is a bound wl_shm global.
type Shm struct {
	object
}

func bindShm(client *Client, id, version uint32) {
	obj := Shm{object: object{client: client, id: id, version: version}}
	client.Add(&obj)
	for _, f := range shm.Formats {
		msg := newEvent(&obj, 0, "format", f)
		msg.WriteUint(uint32(f))
		client.Send(msg)
	}
}

func (obj *Shm) Delete() {}

func (obj *Shm) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		pool := ShmPool{object: obj.child(msg.ReadUint())}
		file := msg.ReadFile()
		size := msg.ReadInt()
		if err := msg.Err(); err != nil {
			if file != nil {
				file.Close()
			}
			return err
		}
		if err := obj.client.checkNewID(pool.id); err != nil {
			file.Close()
			return err
		}

		p, err := shm.NewPool(file, size)
		if err != nil {
			return shmError(err)
		}
		pool.pool = p
		obj.client.Add(&pool)
		return nil

	default:
		return unknownOp(shmInterface, msg)
	}
}

func (obj *Shm) MethodName(op uint16) string {
	return methodName(shmMethods, op)
}

func (obj *Shm) String() string {
	return fmt.Sprintf("%v@%v", shmInterface, obj.id)
}

const shmPoolInterface = "wl_shm_pool"

var shmPoolMethods = []string{"create_buffer", "destroy", "resize"}

// ShmPool is a wl_shm_pool.
type ShmPool struct {
	object
	pool *shm.Pool
}

func (obj *ShmPool) Delete() {
	obj.pool.Destroy()
}

func (obj *ShmPool) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		buf := Buffer{object: obj.child(msg.ReadUint())}
		offset, width, height, stride := msg.ReadInt(), msg.ReadInt(), msg.ReadInt(), msg.ReadInt()
		format := shm.Format(msg.ReadUint())
		if err := msg.Err(); err != nil {
			return err
		}
		if err := obj.client.checkNewID(buf.id); err != nil {
			return err
		}

		b, err := obj.pool.CreateBuffer(offset, width, height, stride, format)
		if err != nil {
			return shmError(err)
		}
		buf.buffer = b
		obj.client.Add(&buf)
		return nil

	case 1:
		obj.client.Delete(obj.id)
		return nil

	case 2:
		size := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		return shmError(obj.pool.Resize(size))

	default:
		return unknownOp(shmPoolInterface, msg)
	}
}

func (obj *ShmPool) MethodName(op uint16) string {
	return methodName(shmPoolMethods, op)
}

func (obj *ShmPool) String() string {
	return fmt.Sprintf("%v@%v", shmPoolInterface, obj.id)
}

const bufferInterface = "wl_buffer"

var bufferMethods = []string{"destroy"}

// Buffer is a wl_buffer backed by shared memory. It is the
// compositor.BufferResource that surfaces attach.
type Buffer struct {
	object
	buffer    *shm.Buffer
	listeners map[int]func()
	next      int
	destroyed bool
}

// Size implements compositor.BufferResource.
func (obj *Buffer) Size() image.Point {
	return obj.buffer.Size()
}

// Handle implements compositor.BufferResource. It returns the
// underlying *shm.Buffer.
func (obj *Buffer) Handle() any {
	return obj.buffer
}

// AddDestroyListener implements compositor.BufferResource.
func (obj *Buffer) AddDestroyListener(f func()) (remove func()) {
	if obj.listeners == nil {
		obj.listeners = make(map[int]func())
	}
	id := obj.next
	obj.next++
	obj.listeners[id] = f
	return func() { delete(obj.listeners, id) }
}

// SendRelease implements compositor.BufferResource.
func (obj *Buffer) SendRelease() {
	if obj.destroyed {
		return
	}
	obj.client.Send(newEvent(obj, 0, "release"))
}

func (obj *Buffer) Delete() {
	obj.destroyed = true
	for id, f := range obj.listeners {
		delete(obj.listeners, id)
		f()
	}
	obj.buffer.Destroy()
}

func (obj *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case 0:
		obj.client.Delete(obj.id)
		return nil

	default:
		return unknownOp(bufferInterface, msg)
	}
}

func (obj *Buffer) MethodName(op uint16) string {
	return methodName(bufferMethods, op)
}

func (obj *Buffer) String() string {
	return fmt.Sprintf("%v@%v", bufferInterface, obj.id)
}
