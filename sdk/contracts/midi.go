package contracts

import "fmt"

// Status bytes of the channel-voice messages the decoder understands.
const (
	// StatusNoteOn is the MIDI status nibble for a Note On message (0x90).
	StatusNoteOn byte = 0x90
	// StatusNoteOff is the MIDI status nibble for a Note Off message (0x80).
	StatusNoteOff byte = 0x80
	// StatusMask selects the message type nibble of a status byte.
	StatusMask byte = 0xF0
)

// RawFrame is one message as delivered by a device port.
// Frames are produced per hardware callback and consumed synchronously; they are never persisted.
type RawFrame struct {
	Data      []byte // Data holds the status byte followed by the data bytes.
	Timestamp uint64 // Timestamp is a monotonic nanosecond timestamp assigned by the backend.
}

// FrameHandler receives every frame delivered by a bound device port.
type FrameHandler func(frame RawFrame)

// NoteKind distinguishes key presses from key releases.
type NoteKind int

const (
	// NoteOn is a key press with a non-zero velocity.
	NoteOn NoteKind = iota + 1
	// NoteOff is a key release, including zero-velocity Note On frames.
	NoteOff
)

// String implements fmt.Stringer.
func (k NoteKind) String() string {
	switch k {
	case NoteOn:
		return "noteOn"
	case NoteOff:
		return "noteOff"
	default:
		return fmt.Sprintf("NoteKind(%d)", int(k))
	}
}

// NoteEvent is the normalized press/release event derived from exactly one RawFrame.
// A NoteOn event always carries a velocity greater than zero.
type NoteEvent struct {
	Note     int      // Note is the MIDI note number (0-127).
	Velocity int      // Velocity is the strength of the key press (0-127).
	Kind     NoteKind // Kind is NoteOn or NoteOff.
}

// RawMessage is the payload of the raw "message" bus event.
type RawMessage struct {
	Data      []byte `json:"data"`
	Timestamp uint64 `json:"timestamp"`
}

// SyncMessage is the only payload replicated between participants.
// It drops the velocity of the NoteEvent it was derived from.
type SyncMessage struct {
	Note    int  `json:"note"`
	Pressed bool `json:"pressed"`
}

// SyncMessageFrom projects a NoteEvent onto the replicated payload.
func SyncMessageFrom(ev NoteEvent) SyncMessage {
	return SyncMessage{Note: ev.Note, Pressed: ev.Kind == NoteOn}
}
