package contracts

import "errors"

// Error taxonomy of the synchronization core. None of these are fatal to the host process.
var (
	// ErrCapabilityUnsupported is returned when the platform has no MIDI access support.
	ErrCapabilityUnsupported = errors.New("midi capability unsupported")
	// ErrPermissionDenied is returned when access to MIDI devices was declined.
	ErrPermissionDenied = errors.New("midi permission denied")
	// ErrUnknownDevice is returned for a device id absent from the registry.
	ErrUnknownDevice = errors.New("unknown MIDI device")
	// ErrStaleGeneration is returned for a handle bound before the latest device rescan.
	ErrStaleGeneration = errors.New("stale device handle")
	// ErrMalformedFrame is returned for frames shorter than three bytes.
	ErrMalformedFrame = errors.New("malformed MIDI frame")
	// ErrUnsupportedOS is returned when no device-access backend exists for the operating system.
	ErrUnsupportedOS = errors.New("unsupported operating system")
)
