package compositor

import (
	"errors"
	"fmt"
)

var (
	// ErrDestroyed is returned when an operation needs a resource that
	// has already been destroyed.
	ErrDestroyed = errors.New("resource destroyed")

	// ErrNoGraphicsIntegration is returned by texture operations when
	// the compositor was created without a GraphicsIntegration.
	ErrNoGraphicsIntegration = errors.New("no graphics integration")
)

// ProtocolError is a fatal error raised against a client. The object
// that the offending request targeted is the object the error is
// reported on.
type ProtocolError struct {
	Interface string
	Code      uint32
	Message   string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("%v error %v: %v", err.Interface, err.Code, err.Message)
}

// Error codes defined by the core protocol.
const (
	DisplayErrorInvalidObject uint32 = iota
	DisplayErrorInvalidMethod
	DisplayErrorNoMemory
	DisplayErrorImplementation
)

const (
	SurfaceErrorInvalidScale uint32 = iota
	SurfaceErrorInvalidTransform
	SurfaceErrorInvalidSize
	SurfaceErrorInvalidOffset
	SurfaceErrorDefunctRoleObject
)

const (
	SubcompositorErrorBadSurface uint32 = iota
	SubcompositorErrorBadParent
)

const (
	SubsurfaceErrorBadSurface uint32 = 0
)
