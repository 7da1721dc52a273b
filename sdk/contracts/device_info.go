package contracts

// ConnectionState reports whether a device port is currently reachable.
type ConnectionState string

const (
	// Connected marks a port the platform currently reports as present.
	Connected ConnectionState = "connected"
	// Disconnected marks a port the platform still lists but can no longer reach.
	Disconnected ConnectionState = "disconnected"
)

// DeviceInfo contains information about a MIDI device port.
type DeviceInfo struct {
	ID           string          // Stable identifier of the port within one enumeration.
	Name         string          // Device name.
	Manufacturer string          // Device manufacturer.
	State        ConnectionState // Connection state at enumeration time.
}
