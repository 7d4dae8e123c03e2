package compositor

import (
	"sync"

	"deedles.dev/wlcompositor/internal/set"
)

// lifecycle is a process-wide record of surfaces that were created but
// never initialized, for finding surfaces that the embedding code
// forgot about. It does nothing unless tracking has been enabled.
var lifecycle struct {
	sync.Mutex
	enabled  bool
	surfaces set.Set[*Surface]
}

// EnableLifecycleTracking turns tracking of uninitialized surfaces on
// or off. Turning it off forgets every tracked surface.
func EnableLifecycleTracking(enabled bool) {
	lifecycle.Lock()
	defer lifecycle.Unlock()

	lifecycle.enabled = enabled
	lifecycle.surfaces = nil
	if enabled {
		lifecycle.surfaces = set.New[*Surface]()
	}
}

// HasUninitializedSurface reports whether any tracked surface has not
// been initialized. It is always false while tracking is disabled.
func HasUninitializedSurface() bool {
	return UninitializedSurfaces() > 0
}

// UninitializedSurfaces returns the number of tracked surfaces that
// have not been initialized.
func UninitializedSurfaces() int {
	lifecycle.Lock()
	defer lifecycle.Unlock()

	return lifecycle.surfaces.Len()
}

func trackUninitialized(s *Surface) {
	lifecycle.Lock()
	defer lifecycle.Unlock()

	if lifecycle.enabled {
		lifecycle.surfaces.Add(s)
	}
}

func untrackUninitialized(s *Surface) {
	lifecycle.Lock()
	defer lifecycle.Unlock()

	if lifecycle.enabled {
		lifecycle.surfaces.Delete(s)
	}
}
