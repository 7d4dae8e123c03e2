package compositor

// View is one place where composition shows a surface. A view does not
// own its surface: it holds the surface's ID and looks it up every time
// it is used, so a destroyed surface simply stops resolving.
//
// A view does own a composition-side reference to the buffer it last
// latched with Advance, which keeps that buffer alive until the view
// moves on or is released.
type View struct {
	compositor *Compositor
	surface    SurfaceID
	buffer     *Buffer
	released   bool

	// SurfaceDestroyed, if non-nil, is called when the viewed surface is
	// destroyed. The surface must not be used from then on.
	SurfaceDestroyed func()
}

// Surface returns the viewed surface, or nil if it has been destroyed.
func (v *View) Surface() *Surface {
	if v.released {
		return nil
	}
	return v.compositor.Surface(v.surface)
}

// Buffer returns the buffer that the view is currently showing.
func (v *View) Buffer() *Buffer {
	return v.buffer
}

// Advance latches the surface's current buffer. It reports whether the
// buffer changed. The previously latched buffer is released through
// the compositor's release queue.
func (v *View) Advance() bool {
	s := v.Surface()
	var next *Buffer
	if (s != nil) && s.hasContent {
		next = s.buffer
	}
	if next == v.buffer {
		return false
	}

	if v.buffer != nil {
		v.buffer.Release()
	}
	v.buffer = next
	if next != nil {
		next.Acquire()
	}
	return true
}

// DiscardBuffer releases the latched buffer, if any.
func (v *View) DiscardBuffer() {
	if v.buffer == nil {
		return
	}
	v.buffer.Release()
	v.buffer = nil
}

// Release discards the view's buffer and detaches the view from its
// surface. The view must not be used afterwards.
func (v *View) Release() {
	if v.released {
		return
	}
	v.DiscardBuffer()
	if s := v.Surface(); s != nil {
		s.removeView(v)
	}
	v.released = true
}

func (v *View) surfaceDestroyed() {
	if v.SurfaceDestroyed != nil {
		v.SurfaceDestroyed()
	}
}
