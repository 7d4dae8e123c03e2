package compositor

import (
	"fmt"
	"image"

	"deedles.dev/wlcompositor/internal/debug"
)

// BufferResource is the client-side buffer object that a Buffer wraps,
// typically a wl_buffer.
type BufferResource interface {
	// Size is the size of the buffer in pixels.
	Size() image.Point

	// Handle is the opaque pixel-data handle handed to the graphics
	// integration.
	Handle() any

	// AddDestroyListener registers f to be called when the client
	// destroys the resource. The returned function unregisters it.
	AddDestroyListener(f func()) (remove func())

	// SendRelease tells the client that the compositor is done with
	// the buffer.
	SendRelease()
}

// Buffer is the compositor's record of one attachment of a client
// buffer to a surface.
//
// A Buffer has two owners. The surface side owns it from the commit
// that makes it current until it is replaced or the surface is
// destroyed. The composition side owns it between Acquire and the
// execution of the matching scheduled Release. The buffer state is
// torn down, and the client told that the buffer was released, only
// once both sides have let go.
type Buffer struct {
	compositor     *Compositor
	res            BufferResource
	removeListener func()
	size           image.Point

	registered    bool
	destroyed     bool
	surfaceHas    bool
	displayRefs   int
	scheduledRefs int
	displayed     bool
	damage        image.Rectangle
	texture       TextureID
	hasTexture    bool
}

func newBuffer(c *Compositor, res BufferResource) *Buffer {
	b := Buffer{
		compositor: c,
		res:        res,
		size:       res.Size(),
		registered: true,
	}
	b.removeListener = res.AddDestroyListener(b.resourceDestroyed)
	c.trackBuffer(&b)
	return &b
}

// Resource returns the wrapped client resource, or nil if the client
// has destroyed it or the buffer state has been torn down.
func (b *Buffer) Resource() BufferResource {
	return b.res
}

// Handle returns the pixel-data handle of the wrapped resource.
func (b *Buffer) Handle() any {
	if b.res == nil {
		return nil
	}
	return b.res.Handle()
}

func (b *Buffer) Size() image.Point {
	return b.size
}

// IsRegistered reports whether the buffer state is still alive. It
// becomes false once both owners have released the buffer.
func (b *Buffer) IsRegistered() bool {
	return b.registered
}

// IsDestroyed reports whether the client destroyed the underlying
// resource.
func (b *Buffer) IsDestroyed() bool {
	return b.destroyed
}

// IsDisplayed reports whether composition has shown the buffer since
// it was last damaged.
func (b *Buffer) IsDisplayed() bool {
	return b.displayed
}

// Damage returns the area of the buffer, in buffer coordinates, that
// has changed since it was last displayed.
func (b *Buffer) Damage() image.Rectangle {
	return b.damage
}

func (b *Buffer) addDamage(r image.Rectangle) {
	if r.Empty() {
		return
	}
	b.damage = b.damage.Union(r)
	b.displayed = false
}

// SetDisplayed records that composition has shown the current
// contents of the buffer and clears its damage.
func (b *Buffer) SetDisplayed() {
	b.displayed = true
	b.damage = image.Rectangle{}
}

// Acquire takes a composition-side reference to the buffer. Every
// Acquire must be matched by exactly one Release.
func (b *Buffer) Acquire() {
	if !b.registered {
		debug.Log.Warn("acquire of unregistered buffer", "buffer", b)
		return
	}
	b.displayRefs++
}

// Release gives up a composition-side reference. The release is not
// performed immediately; it is queued on the compositor and executed
// the next time the release queue is drained, so it is safe to call
// while rendering.
func (b *Buffer) Release() {
	if b.scheduledRefs >= b.displayRefs {
		panic(fmt.Sprintf("release of %v without matching acquire", b))
	}
	b.scheduledRefs++
	b.compositor.scheduleRelease(b)
}

func (b *Buffer) scheduledRelease() {
	b.scheduledRefs--
	b.displayRefs--
	if !b.surfaceHas && (b.displayRefs == 0) {
		b.destruct()
	}
}

// disown gives up the surface side's ownership.
func (b *Buffer) disown() {
	b.surfaceHas = false
	if b.displayRefs == 0 {
		b.destruct()
	}
}

// discard drops a buffer that was attached but never committed. The
// client is not told about it since the compositor never used it.
func (b *Buffer) discard() {
	if b.surfaceHas || (b.displayRefs > 0) {
		panic(fmt.Sprintf("discard of committed %v", b))
	}
	if b.removeListener != nil {
		b.removeListener()
		b.removeListener = nil
	}
	if b.res != nil {
		b.compositor.untrackBuffer(b.res, b)
	}
	b.res = nil
	b.registered = false
}

func (b *Buffer) destruct() {
	if !b.registered {
		return
	}
	if b.displayRefs > 0 {
		panic(fmt.Sprintf("destruct of %v still held by composition", b))
	}

	b.destroyTexture()
	if b.res != nil {
		if b.removeListener != nil {
			b.removeListener()
			b.removeListener = nil
		}
		b.compositor.untrackBuffer(b.res, b)
		// The same resource may have been attached again and still be
		// in use through another Buffer, which releases it in turn.
		if !b.compositor.bufferInUse(b.res, b) {
			b.res.SendRelease()
		}
		b.res = nil
	}
	b.registered = false
	b.displayed = false
}

func (b *Buffer) resourceDestroyed() {
	b.destroyTexture()
	b.destroyed = true
	if b.res != nil {
		b.compositor.untrackBuffer(b.res, b)
	}
	b.res = nil
	b.removeListener = nil
}

// Texture returns a texture for the buffer's contents, creating it
// through the compositor's GraphicsIntegration the first time.
func (b *Buffer) Texture() (TextureID, error) {
	if b.hasTexture {
		return b.texture, nil
	}
	if b.res == nil {
		return 0, ErrDestroyed
	}

	gfx := b.compositor.gfx
	if gfx == nil {
		return 0, ErrNoGraphicsIntegration
	}

	tex, err := gfx.CreateTextureFromBuffer(b.res.Handle())
	if err != nil {
		return 0, fmt.Errorf("create texture: %w", err)
	}
	b.texture = tex
	b.hasTexture = true
	return tex, nil
}

func (b *Buffer) destroyTexture() {
	if !b.hasTexture {
		return
	}
	if gfx := b.compositor.gfx; gfx != nil {
		gfx.DestroyTexture(b.texture)
	}
	b.texture = 0
	b.hasTexture = false
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer(%vx%v)", b.size.X, b.size.Y)
}
