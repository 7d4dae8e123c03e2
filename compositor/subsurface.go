package compositor

import (
	"fmt"
	"image"

	"golang.org/x/exp/slices"
)

// Subsurface is the role object of a surface that is embedded in a
// parent surface.
//
// A synchronized sub-surface caches its commits until its parent's
// state is applied, so that the parent and all of its synchronized
// descendants change together. A desynchronized sub-surface applies its
// commits immediately, unless an ancestor is synchronized, in which
// case it behaves as if it were synchronized too.
type Subsurface struct {
	compositor *Compositor
	surface    SurfaceID
	parent     SurfaceID
	position   image.Point
	sync       bool

	cached    surfaceState
	hasCache  bool
	destroyed bool
}

// CreateSubsurface turns surface into a sub-surface of parent. New
// sub-surfaces are synchronized and placed on top of their parent's
// stack.
func (c *Compositor) CreateSubsurface(surface, parent *Surface) (*Subsurface, error) {
	if surface.destroyed || parent.destroyed {
		return nil, ErrDestroyed
	}

	if (surface.sub != nil) || ((surface.role != nil) && (surface.role != SubsurfaceRole)) {
		return nil, surface.raise(&ProtocolError{
			Interface: "wl_subcompositor",
			Code:      SubcompositorErrorBadSurface,
			Message:   fmt.Sprintf("%v already has role %v", surface, surface.role),
		})
	}

	for p := parent; p != nil; p = p.Parent() {
		if p == surface {
			return nil, surface.raise(&ProtocolError{
				Interface: "wl_subcompositor",
				Code:      SubcompositorErrorBadParent,
				Message:   fmt.Sprintf("%v cannot be a sub-surface of itself or its descendant %v", surface, parent),
			})
		}
	}

	err := surface.SetRole(SubsurfaceRole, "wl_subcompositor", SubcompositorErrorBadSurface)
	if err != nil {
		return nil, err
	}

	sub := Subsurface{
		compositor: c,
		surface:    surface.id,
		parent:     parent.id,
		sync:       true,
	}
	sub.cached.init()
	surface.sub = &sub
	parent.stack = append(parent.stack, surface.id)

	return &sub, nil
}

// Surface returns the surface that the sub-surface controls, or nil if
// it has been destroyed.
func (sub *Subsurface) Surface() *Surface {
	if sub.destroyed {
		return nil
	}
	return sub.compositor.Surface(sub.surface)
}

// Parent returns the parent surface, or nil if it has been destroyed.
func (sub *Subsurface) Parent() *Surface {
	if sub.destroyed || (sub.parent == 0) {
		return nil
	}
	return sub.compositor.Surface(sub.parent)
}

// Position returns the current position of the sub-surface relative to
// its parent.
func (sub *Subsurface) Position() image.Point {
	return sub.position
}

// IsSync reports whether the sub-surface itself is in synchronized
// mode.
func (sub *Subsurface) IsSync() bool {
	return sub.sync
}

// IsSynchronized reports whether commits to the sub-surface are
// currently cached, which is the case if it or any of its ancestors is
// in synchronized mode.
func (sub *Subsurface) IsSynchronized() bool {
	for cur := sub; cur != nil; {
		parent := cur.Parent()
		if parent == nil {
			return false
		}
		if cur.sync {
			return true
		}
		cur = parent.sub
	}
	return false
}

// HasCachedState reports whether a commit is waiting for the parent.
func (sub *Subsurface) HasCachedState() bool {
	return sub.hasCache
}

// SetPosition sets the pending position of the sub-surface relative to
// its parent. It takes effect with the sub-surface's next applied
// commit.
func (sub *Subsurface) SetPosition(x, y int32) {
	s := sub.Surface()
	if s == nil {
		return
	}
	s.pending.position = image.Pt(int(x), int(y))
	s.pending.hasPosition = true
}

// PlaceAbove moves the sub-surface directly above sibling, which must
// be another sub-surface of the same parent or the parent itself.
func (sub *Subsurface) PlaceAbove(sibling *Surface) error {
	return sub.place(sibling, 1)
}

// PlaceBelow moves the sub-surface directly below sibling, which must
// be another sub-surface of the same parent or the parent itself.
func (sub *Subsurface) PlaceBelow(sibling *Surface) error {
	return sub.place(sibling, 0)
}

func (sub *Subsurface) place(sibling *Surface, offset int) error {
	s := sub.Surface()
	parent := sub.Parent()
	if (s == nil) || (parent == nil) {
		return nil
	}

	if (sibling == nil) || (sibling == s) || ((sibling != parent) && (sibling.Parent() != parent)) {
		return s.raise(&ProtocolError{
			Interface: "wl_subsurface",
			Code:      SubsurfaceErrorBadSurface,
			Message:   fmt.Sprintf("%v is not a sibling or the parent of %v", sibling, s),
		})
	}

	i := slices.Index(parent.stack, s.id)
	parent.stack = slices.Delete(parent.stack, i, i+1)
	target := slices.Index(parent.stack, sibling.id)
	parent.stack = slices.Insert(parent.stack, target+offset, s.id)
	return nil
}

// SetSync puts the sub-surface into synchronized mode.
func (sub *Subsurface) SetSync() {
	sub.sync = true
}

// SetDesync puts the sub-surface into desynchronized mode. If that
// makes it effectively desynchronized, a cached commit is applied
// immediately.
func (sub *Subsurface) SetDesync() {
	if !sub.sync {
		return
	}
	sub.sync = false
	if !sub.IsSynchronized() {
		sub.flush()
	}
}

func (sub *Subsurface) cacheState() {
	s := sub.Surface()
	s.mergeState(&sub.cached, &s.pending)
	if sub.cached.buffer != nil {
		sub.cached.buffer.surfaceHas = true
	}
	sub.hasCache = true
}

// flush applies the cached state, if there is any.
func (sub *Subsurface) flush() {
	s := sub.Surface()
	if !sub.hasCache || (s == nil) {
		return
	}
	sub.hasCache = false
	s.applyState(&sub.cached)
}

func (sub *Subsurface) dropCache() {
	if s := sub.Surface(); s != nil {
		s.dropBuffer(sub.cached.buffer, s.pending.buffer)
	}
	for _, cb := range sub.cached.frameCallbacks {
		cb.surface = nil
	}
	sub.cached.resetTransient()
	sub.hasCache = false
}

// orphan detaches the sub-surface from a parent that is being
// destroyed.
func (sub *Subsurface) orphan() {
	sub.dropCache()
	sub.parent = 0
}

// Destroy removes the sub-surface from its parent. The surface keeps
// its role but is no longer part of the parent's stack, and any cached
// commit is dropped.
func (sub *Subsurface) Destroy() {
	if sub.destroyed {
		return
	}

	sub.dropCache()
	if parent := sub.Parent(); parent != nil {
		if i := slices.Index(parent.stack, sub.surface); i >= 0 {
			parent.stack = slices.Delete(parent.stack, i, i+1)
		}
	}
	if s := sub.Surface(); s != nil {
		s.sub = nil
	}
	sub.parent = 0
	sub.destroyed = true
}
