package compositor

// CallbackResource is the client object notified when a frame callback
// fires, typically a wl_callback.
type CallbackResource interface {
	Done(time uint32)
}

// FrameCallback is a one-shot request to be told when the surface's
// content has been presented.
type FrameCallback struct {
	res     CallbackResource
	surface *Surface
	fired   bool
}

// Fired reports whether the callback has been sent.
func (cb *FrameCallback) Fired() bool {
	return cb.fired
}

// Destroy removes the callback from its surface without firing it. It
// is used when the client destroys the callback resource first.
func (cb *FrameCallback) Destroy() {
	s := cb.surface
	if s == nil {
		return
	}
	cb.surface = nil

	s.pending.frameCallbacks = removeCallback(s.pending.frameCallbacks, cb)
	s.frameCallbacks = removeCallback(s.frameCallbacks, cb)
	if s.sub != nil {
		s.sub.cached.frameCallbacks = removeCallback(s.sub.cached.frameCallbacks, cb)
	}
}

func (cb *FrameCallback) send(time uint32) {
	if cb.fired || (cb.surface == nil) {
		return
	}
	cb.fired = true
	cb.surface = nil
	cb.res.Done(time)
}

func removeCallback(s []*FrameCallback, cb *FrameCallback) []*FrameCallback {
	for i, v := range s {
		if v == cb {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
