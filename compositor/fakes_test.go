package compositor

import (
	"image"
)

type fakeBuffer struct {
	size      image.Point
	released  int
	listeners map[int]func()
	next      int
}

func newFakeBuffer(w, h int) *fakeBuffer {
	return &fakeBuffer{
		size:      image.Pt(w, h),
		listeners: make(map[int]func()),
	}
}

func (b *fakeBuffer) Size() image.Point { return b.size }

func (b *fakeBuffer) Handle() any { return b }

func (b *fakeBuffer) AddDestroyListener(f func()) func() {
	id := b.next
	b.next++
	b.listeners[id] = f
	return func() { delete(b.listeners, id) }
}

func (b *fakeBuffer) SendRelease() { b.released++ }

func (b *fakeBuffer) destroy() {
	for _, f := range b.listeners {
		f()
	}
	b.listeners = nil
}

type fakeCallback struct {
	name string
	log  *[]string
	time uint32
}

func (cb *fakeCallback) Done(time uint32) {
	cb.time = time
	*cb.log = append(*cb.log, cb.name)
}

type fakeGraphics struct {
	next      TextureID
	live      map[TextureID]any
	destroyed []TextureID
	err       error
}

func newFakeGraphics() *fakeGraphics {
	return &fakeGraphics{live: make(map[TextureID]any)}
}

func (gfx *fakeGraphics) CreateTextureFromBuffer(handle any) (TextureID, error) {
	if gfx.err != nil {
		return 0, gfx.err
	}
	gfx.next++
	gfx.live[gfx.next] = handle
	return gfx.next, nil
}

func (gfx *fakeGraphics) DestroyTexture(tex TextureID) {
	delete(gfx.live, tex)
	gfx.destroyed = append(gfx.destroyed, tex)
}
