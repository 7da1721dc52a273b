package contracts

import "context"

// InputPort is a single device input as exposed by a device-access backend.
type InputPort interface {
	// Info describes the port.
	Info() DeviceInfo
	// Listen attaches handler to the port. Backends keep one callback per port, so a second call
	// replaces the first. The returned stop function detaches the handler.
	Listen(handler FrameHandler) (stop func(), err error)
}

// Access is the platform device-access capability.
type Access interface {
	// RequestAccess obtains access to the platform MIDI subsystem. It may suspend while the
	// platform asks for a permission grant and fails with ErrCapabilityUnsupported or
	// ErrPermissionDenied.
	RequestAccess(ctx context.Context) error
	// Inputs enumerates the input ports.
	Inputs() ([]InputPort, error)
	// Outputs enumerates the output ports.
	Outputs() ([]DeviceInfo, error)
	// Changes signals every time the set of ports changes.
	Changes() <-chan struct{}
	// Close releases the platform resources.
	Close() error
}
