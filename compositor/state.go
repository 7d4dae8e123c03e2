package compositor

import (
	"image"

	"deedles.dev/wlcompositor/region"
)

// surfaceState is the double-buffered state of a surface. The pending
// state of a surface, and the cached state of a synchronized
// sub-surface, are both surfaceStates.
//
// Damage, the attached buffer, the attach offset, frame callbacks and
// the sub-surface position only apply to the commit they were sent
// before. Everything else keeps its value until it is replaced.
type surfaceState struct {
	buffer        *Buffer
	newlyAttached bool
	offset        image.Point

	surfaceDamage region.Region
	bufferDamage  region.Region

	opaqueRegion region.Region
	inputRegion  *region.Region

	bufferScale     int32
	transform       Transform
	sourceGeometry  image.Rectangle
	destinationSize image.Point

	frameCallbacks []*FrameCallback

	position    image.Point
	hasPosition bool
}

func (st *surfaceState) init() {
	st.bufferScale = 1
}

// resetTransient clears the per-commit part of st without touching
// the buffer it referenced.
func (st *surfaceState) resetTransient() {
	st.buffer = nil
	st.newlyAttached = false
	st.offset = image.Point{}
	st.surfaceDamage.Clear()
	st.bufferDamage.Clear()
	st.frameCallbacks = nil
	st.hasPosition = false
}

// mergeState moves src into dst. Transient state accumulates in dst,
// with a newer buffer replacing an older one; the rest is copied. src's
// transient state is reset.
func (s *Surface) mergeState(dst, src *surfaceState) {
	if src.newlyAttached {
		if dst.newlyAttached {
			s.dropBuffer(dst.buffer, src.buffer)
		}
		dst.buffer = src.buffer
		dst.newlyAttached = true
	}
	dst.offset = dst.offset.Add(src.offset)

	dst.surfaceDamage.Union(&src.surfaceDamage)
	dst.bufferDamage.Union(&src.bufferDamage)

	dst.opaqueRegion = *src.opaqueRegion.Clone()
	dst.inputRegion = nil
	if src.inputRegion != nil {
		dst.inputRegion = src.inputRegion.Clone()
	}

	dst.bufferScale = src.bufferScale
	dst.transform = src.transform
	dst.sourceGeometry = src.sourceGeometry
	dst.destinationSize = src.destinationSize

	dst.frameCallbacks = append(dst.frameCallbacks, src.frameCallbacks...)

	if src.hasPosition {
		dst.position = src.position
		dst.hasPosition = true
	}

	src.resetTransient()
}

// dropBuffer lets go of a buffer that was replaced before it became
// current. Buffers that were never committed are dropped silently;
// committed ones are disowned so that the client gets them back.
func (s *Surface) dropBuffer(b, replacement *Buffer) {
	if (b == nil) || (b == replacement) || (b == s.buffer) {
		return
	}
	if b.surfaceHas {
		b.disown()
		return
	}
	b.discard()
}
