package contracts

// Event names published on the EventBus.
const (
	EventReady          = "ready"
	EventError          = "error"
	EventDevicesChanged = "devices-changed"
	EventNoteOn         = "input:noteOn"
	EventNoteOff        = "input:noteOff"
	EventMessage        = "message"
)

// EventHandler receives the payload of a published event.
type EventHandler func(payload any)

// EventBus moves named events between components of one participant.
type EventBus interface {
	// Publish delivers payload synchronously to every subscriber of name.
	Publish(name string, payload any)
	// Subscribe registers handler for name and returns a function removing it.
	Subscribe(name string, handler EventHandler) (unsubscribe func())
}
