package compositor

import (
	"fmt"
	"image"

	"deedles.dev/wlcompositor/internal/debug"
	"deedles.dev/wlcompositor/region"
	"golang.org/x/exp/slices"
)

// SurfaceID identifies a surface within a Compositor. IDs are never
// reused, so a stale ID simply fails to resolve.
type SurfaceID uint32

// Surface is a rectangular area that a client can put content into.
//
// Requests modify the surface's pending state. Commit applies the
// pending state atomically, after which it is the state that
// composition works from.
type Surface struct {
	compositor *Compositor
	id         SurfaceID
	client     *Client
	views      []*View

	damage       region.Region
	bufferDamage region.Region

	buffer          *Buffer
	hasContent      bool
	newlyAttached   bool
	offset          image.Point
	bufferSize      image.Point
	bufferScale     int32
	transform       Transform
	opaqueRegion    region.Region
	inputRegion     *region.Region
	sourceGeometry  image.Rectangle
	destinationSize image.Point
	orientation     Orientation

	initialized  bool
	destroyed    bool
	role         *Role
	roleRequired bool
	sub          *Subsurface

	// stack is the stacking order of this surface and its sub-surfaces,
	// bottom first. It always contains id itself.
	stack []SurfaceID

	pending        surfaceState
	frameCallbacks []*FrameCallback

	destroyListeners map[int]func()
	nextListener     int
}

func (s *Surface) ID() SurfaceID {
	return s.id
}

func (s *Surface) Compositor() *Compositor {
	return s.compositor
}

// Client returns the client that owns the surface. It is nil for
// surfaces created by the compositor itself.
func (s *Surface) Client() *Client {
	return s.client
}

func (s *Surface) IsInitialized() bool {
	return s.initialized
}

func (s *Surface) IsDestroyed() bool {
	return s.destroyed
}

// Initialize marks the surface as ready for use. Surfaces created with
// CreateSurface are initialized automatically.
func (s *Surface) Initialize() {
	if s.initialized {
		return
	}
	s.initialized = true
	untrackUninitialized(s)
}

// Buffer returns the current buffer, or nil if there is none.
func (s *Surface) Buffer() *Buffer {
	return s.buffer
}

// HasContent reports whether the surface has a buffer to show.
func (s *Surface) HasContent() bool {
	return s.hasContent
}

// NewlyAttached reports whether the last applied commit attached a new
// buffer.
func (s *Surface) NewlyAttached() bool {
	return s.newlyAttached
}

// Offset returns the attach offset of the last applied commit.
func (s *Surface) Offset() image.Point {
	return s.offset
}

func (s *Surface) BufferSize() image.Point {
	return s.bufferSize
}

func (s *Surface) BufferScale() int32 {
	return s.bufferScale
}

func (s *Surface) BufferTransform() Transform {
	return s.transform
}

// Size returns the size of the surface in surface coordinates.
func (s *Surface) Size() image.Point {
	return s.destinationSize
}

func (s *Surface) SourceGeometry() image.Rectangle {
	return s.sourceGeometry
}

// OpaqueRegion returns a copy of the current opaque region.
func (s *Surface) OpaqueRegion() *region.Region {
	return s.opaqueRegion.Clone()
}

// IsOpaque reports whether the opaque region covers the whole surface.
func (s *Surface) IsOpaque() bool {
	bounds := image.Rectangle{Max: s.Size()}
	if bounds.Empty() {
		return false
	}
	return region.Rect(bounds).Equal(s.opaqueRegionWithin(bounds))
}

func (s *Surface) opaqueRegionWithin(bounds image.Rectangle) *region.Region {
	r := s.opaqueRegion.Clone()
	r.Intersect(bounds)
	return r
}

// InputRegion returns a copy of the current input region. A nil
// region means that the whole surface accepts input.
func (s *Surface) InputRegion() *region.Region {
	if s.inputRegion == nil {
		return nil
	}
	return s.inputRegion.Clone()
}

// AcceptsInputAt reports whether p, in surface coordinates, is inside
// both the surface and its input region.
func (s *Surface) AcceptsInputAt(p image.Point) bool {
	if !s.hasContent || !p.In(image.Rectangle{Max: s.Size()}) {
		return false
	}
	return (s.inputRegion == nil) || s.inputRegion.Contains(p)
}

func (s *Surface) ContentOrientation() Orientation {
	return s.orientation
}

func (s *Surface) SetContentOrientation(o Orientation) {
	s.orientation = o
}

// Damage returns the committed damage that composition has not yet
// taken, in surface coordinates. Buffer damage is converted using the
// current buffer size, scale and transform.
func (s *Surface) Damage() *region.Region {
	d := s.damage.Clone()
	for _, r := range s.bufferDamage.Rects() {
		d.Add(bufferRectToSurface(r, s.bufferSize, s.bufferScale, s.transform))
	}
	return d
}

// TakeDamage returns the committed damage and clears it.
func (s *Surface) TakeDamage() *region.Region {
	d := s.Damage()
	s.damage.Clear()
	s.bufferDamage.Clear()
	return d
}

// Role returns the surface's role, or nil if it has none.
func (s *Surface) Role() *Role {
	return s.role
}

// SetRole gives the surface a role. A surface keeps its first role for
// its whole life; assigning a different one raises a protocol error
// with the given interface and code against the client.
func (s *Surface) SetRole(role *Role, iface string, code uint32) error {
	if (s.role != nil) && (s.role != role) {
		return s.raise(&ProtocolError{
			Interface: iface,
			Code:      code,
			Message:   fmt.Sprintf("cannot assign role %v to %v, already has role %v", role, s, s.role),
		})
	}
	s.role = role
	return nil
}

// SetRoleRequired sets whether content may only be committed to the
// surface after it has been given a role. The default is taken from
// the compositor's options.
func (s *Surface) SetRoleRequired(required bool) {
	s.roleRequired = required
}

// Subsurface returns the sub-surface role object of the surface, or
// nil if it is not a sub-surface.
func (s *Surface) Subsurface() *Subsurface {
	return s.sub
}

// Parent returns the parent of a sub-surface. It is nil for other
// surfaces and for sub-surfaces whose parent is gone.
func (s *Surface) Parent() *Surface {
	if s.sub == nil {
		return nil
	}
	return s.sub.Parent()
}

// Stack returns the surface and its sub-surfaces in stacking order,
// bottom first.
func (s *Surface) Stack() []*Surface {
	stack := make([]*Surface, 0, len(s.stack))
	for _, id := range s.stack {
		if child := s.compositor.Surface(id); child != nil {
			stack = append(stack, child)
		}
	}
	return stack
}

// Children returns the sub-surfaces of s in stacking order.
func (s *Surface) Children() []*Surface {
	children := make([]*Surface, 0, len(s.stack))
	for _, id := range s.stack {
		if id == s.id {
			continue
		}
		if child := s.compositor.Surface(id); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// Bounds returns the rectangle covered by s and its sub-surfaces, in
// the coordinate space of s.
func (s *Surface) Bounds() image.Rectangle {
	bounds := image.Rectangle{Max: s.Size()}
	for _, child := range s.Children() {
		b := child.Bounds().Add(child.sub.position)
		bounds = bounds.Union(b)
	}
	return bounds
}

// Views returns the views currently showing the surface.
func (s *Surface) Views() []*View {
	return append([]*View(nil), s.views...)
}

// AddDestroyListener registers f to be called when the surface is
// destroyed. The returned function unregisters it.
func (s *Surface) AddDestroyListener(f func()) (remove func()) {
	if s.destroyListeners == nil {
		s.destroyListeners = make(map[int]func())
	}
	id := s.nextListener
	s.nextListener++
	s.destroyListeners[id] = f
	return func() { delete(s.destroyListeners, id) }
}

// Attach sets the buffer to use as the surface's content on the next
// commit. A nil resource removes the content. dx and dy are the
// position of the new buffer's top-left corner relative to the old
// one.
func (s *Surface) Attach(res BufferResource, dx, dy int32) {
	if s.destroyed {
		return
	}

	var buf *Buffer
	if res != nil {
		buf = s.bufferFor(res)
	}
	s.dropBuffer(s.pending.buffer, buf)

	s.pending.buffer = buf
	s.pending.newlyAttached = true
	s.pending.offset = image.Pt(int(dx), int(dy))
}

// bufferFor returns the Buffer to use for res. A resource that is
// already current, or already cached by a synchronized sub-surface,
// keeps its Buffer so that it is not released while still in use.
func (s *Surface) bufferFor(res BufferResource) *Buffer {
	if (s.buffer != nil) && (s.buffer.res == res) {
		return s.buffer
	}
	if (s.sub != nil) && (s.sub.cached.buffer != nil) && (s.sub.cached.buffer.res == res) {
		return s.sub.cached.buffer
	}
	if (s.pending.buffer != nil) && (s.pending.buffer.res == res) {
		return s.pending.buffer
	}
	return newBuffer(s.compositor, res)
}

// SetOffset sets the pending attach offset without attaching a
// buffer.
func (s *Surface) SetOffset(dx, dy int32) {
	if s.destroyed {
		return
	}
	s.pending.offset = image.Pt(int(dx), int(dy))
}

// DamageSurface marks an area of the surface, in surface coordinates, as
// changed. Rectangles with a non-positive size are ignored.
func (s *Surface) DamageSurface(x, y, w, h int32) {
	if s.destroyed {
		return
	}
	s.pending.surfaceDamage.Add(region.XYWH(x, y, w, h))
}

// DamageBuffer marks an area of the surface, in buffer coordinates, as
// changed. Rectangles with a non-positive size are ignored.
func (s *Surface) DamageBuffer(x, y, w, h int32) {
	if s.destroyed {
		return
	}
	s.pending.bufferDamage.Add(region.XYWH(x, y, w, h))
}

// SetOpaqueRegion replaces the pending opaque region with a copy of r.
// A nil region means that no part of the surface is opaque.
func (s *Surface) SetOpaqueRegion(r *region.Region) {
	if s.destroyed {
		return
	}
	s.pending.opaqueRegion = *r.Clone()
}

// SetInputRegion replaces the pending input region with a copy of r.
// A nil region means that the whole surface accepts input.
func (s *Surface) SetInputRegion(r *region.Region) {
	if s.destroyed {
		return
	}
	if r == nil {
		s.pending.inputRegion = nil
		return
	}
	s.pending.inputRegion = r.Clone()
}

// SetBufferScale sets the pending buffer scale. Scales less than one
// are a protocol error and leave the pending state unchanged.
func (s *Surface) SetBufferScale(scale int32) error {
	if s.destroyed {
		return nil
	}
	if scale < 1 {
		return s.raise(&ProtocolError{
			Interface: "wl_surface",
			Code:      SurfaceErrorInvalidScale,
			Message:   fmt.Sprintf("buffer scale must be at least one, not %v", scale),
		})
	}
	s.pending.bufferScale = scale
	return nil
}

// SetBufferTransform sets the pending buffer transform. Unknown
// transforms are a protocol error and leave the pending state
// unchanged.
func (s *Surface) SetBufferTransform(t Transform) error {
	if s.destroyed {
		return nil
	}
	if !t.Valid() {
		return s.raise(&ProtocolError{
			Interface: "wl_surface",
			Code:      SurfaceErrorInvalidTransform,
			Message:   fmt.Sprintf("buffer transform %v is not valid", int32(t)),
		})
	}
	s.pending.transform = t
	return nil
}

// SetSourceGeometry sets the pending source rectangle, in surface
// coordinates of the buffer, to show. An empty rectangle shows the
// whole buffer.
func (s *Surface) SetSourceGeometry(r image.Rectangle) {
	if s.destroyed {
		return
	}
	s.pending.sourceGeometry = r
}

// SetDestinationSize sets the pending size of the surface. A zero size
// uses the size of the source geometry.
func (s *Surface) SetDestinationSize(size image.Point) {
	if s.destroyed {
		return
	}
	s.pending.destinationSize = size
}

// Frame requests a notification for when the content of the next
// commit has been presented.
func (s *Surface) Frame(res CallbackResource) *FrameCallback {
	cb := FrameCallback{res: res, surface: s}
	if s.destroyed {
		cb.surface = nil
		return &cb
	}
	s.pending.frameCallbacks = append(s.pending.frameCallbacks, &cb)
	return &cb
}

// Commit applies the pending state. If the surface is a synchronized
// sub-surface the state is cached instead and applied when the parent
// commits.
func (s *Surface) Commit() error {
	if s.destroyed {
		return nil
	}

	if s.roleRequired && (s.role == nil) && s.pending.newlyAttached && (s.pending.buffer != nil) {
		return s.raise(&ProtocolError{
			Interface: "wl_display",
			Code:      DisplayErrorInvalidMethod,
			Message:   fmt.Sprintf("%v has no role but content was committed", s),
		})
	}

	if !s.initialized {
		debug.Log.Debug("commit on uninitialized surface", "surface", s)
		s.Initialize()
	}

	if (s.sub != nil) && s.sub.IsSynchronized() {
		s.sub.cacheState()
		return nil
	}

	s.applyState(&s.pending)
	return nil
}

// applyState makes st the current state and then applies the cached
// state of any sub-surfaces that were waiting for this commit.
func (s *Surface) applyState(st *surfaceState) {
	s.newlyAttached = st.newlyAttached
	if st.newlyAttached {
		old := s.buffer
		s.buffer = st.buffer
		if s.buffer != nil {
			s.buffer.surfaceHas = true
		}
		if (old != nil) && (old != s.buffer) {
			old.disown()
		}

		s.bufferSize = image.Point{}
		if s.buffer != nil {
			s.bufferSize = s.buffer.Size()
		}
	}
	s.hasContent = (s.buffer != nil) && !s.buffer.destroyed
	s.offset = st.offset

	s.bufferScale = st.bufferScale
	s.transform = st.transform

	s.damage.Union(&st.surfaceDamage)
	s.bufferDamage.Union(&st.bufferDamage)
	if s.buffer != nil {
		for _, r := range st.bufferDamage.Rects() {
			s.buffer.addDamage(r)
		}
		for _, r := range st.surfaceDamage.Rects() {
			s.buffer.addDamage(surfaceRectToBuffer(r, s.bufferScale))
		}
	}

	s.opaqueRegion = *st.opaqueRegion.Clone()
	s.inputRegion = nil
	if st.inputRegion != nil {
		s.inputRegion = st.inputRegion.Clone()
	}

	size := surfaceSize(s.bufferSize, s.bufferScale, s.transform)
	s.sourceGeometry = st.sourceGeometry
	if s.sourceGeometry.Empty() {
		s.sourceGeometry = image.Rectangle{Max: size}
	}
	s.destinationSize = st.destinationSize
	if (s.destinationSize.X <= 0) || (s.destinationSize.Y <= 0) {
		s.destinationSize = s.sourceGeometry.Size()
	}

	s.frameCallbacks = append(s.frameCallbacks, st.frameCallbacks...)

	if st.hasPosition && (s.sub != nil) {
		s.sub.position = st.position
	}

	st.resetTransient()

	if s.compositor.SurfaceCommitted != nil {
		s.compositor.SurfaceCommitted(s)
	}

	s.commitChildren()
}

// commitChildren applies the cached state of every sub-surface, in
// stacking order, that has some.
func (s *Surface) commitChildren() {
	for _, id := range append([]SurfaceID(nil), s.stack...) {
		if id == s.id {
			continue
		}
		child := s.compositor.Surface(id)
		if (child == nil) || (child.sub == nil) {
			continue
		}
		child.sub.flush()
	}
}

// SendFrameCallbacks fires every committed frame callback in the order
// that they were requested.
func (s *Surface) SendFrameCallbacks(time uint32) {
	callbacks := s.frameCallbacks
	s.frameCallbacks = nil
	for _, cb := range callbacks {
		cb.send(time)
	}
}

// NewView creates a view of the surface for composition to render.
func (s *Surface) NewView() *View {
	v := View{
		compositor: s.compositor,
		surface:    s.id,
	}
	if !s.destroyed {
		s.views = append(s.views, &v)
	}
	return &v
}

func (s *Surface) removeView(v *View) {
	if i := slices.Index(s.views, v); i >= 0 {
		s.views = slices.Delete(s.views, i, i+1)
	}
}

// Destroy destroys the surface. Views are told that the surface is
// gone, its buffers are released and its frame callbacks are dropped
// without being fired.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true

	if s.sub != nil {
		s.sub.Destroy()
	}
	for _, id := range s.stack {
		if id == s.id {
			continue
		}
		if child := s.compositor.Surface(id); (child != nil) && (child.sub != nil) {
			child.sub.orphan()
		}
	}
	s.stack = nil

	s.notifyViewsAboutDestruction()

	s.dropBuffer(s.pending.buffer, nil)
	for _, cb := range s.pending.frameCallbacks {
		cb.surface = nil
	}
	s.pending.resetTransient()

	if s.buffer != nil {
		s.buffer.disown()
		s.buffer = nil
	}
	s.hasContent = false
	for _, cb := range s.frameCallbacks {
		cb.surface = nil
	}
	s.frameCallbacks = nil

	untrackUninitialized(s)
	s.compositor.removeSurface(s)

	for _, f := range s.destroyListeners {
		f()
	}
	s.destroyListeners = nil
}

func (s *Surface) notifyViewsAboutDestruction() {
	views := s.views
	s.views = nil
	for _, v := range views {
		v.surfaceDestroyed()
	}
}

func (s *Surface) raise(err *ProtocolError) error {
	debug.Log.Warn("protocol error", "surface", s, "err", err)
	if s.client != nil {
		s.client.Fail(err)
	}
	return err
}

func (s *Surface) String() string {
	return fmt.Sprintf("wl_surface#%v", s.id)
}

func surfaceRectToBuffer(r image.Rectangle, scale int32) image.Rectangle {
	if scale <= 1 {
		return r
	}
	return image.Rectangle{Min: r.Min.Mul(int(scale)), Max: r.Max.Mul(int(scale))}
}
