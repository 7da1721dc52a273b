// Package decoder turns raw three-byte MIDI frames into normalized note events.
package decoder

import (
	"fmt"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// Decoder classifies frames by status byte. The vendor variant table is its only setting.
type Decoder struct {
	noteOn  [256]bool
	noteOff [256]bool
}

// New creates a decoder accepting the given vendor variants in addition to the standard status bytes.
func New(variants contracts.VariantTable) *Decoder {
	d := &Decoder{}
	for _, b := range variants.NoteOn {
		d.noteOn[b] = true
	}
	for _, b := range variants.NoteOff {
		d.noteOff[b] = true
	}
	return d
}

// Decode converts frame into a NoteEvent.
//
// ok is false when the status byte is not a note message; that is a no-op, not an error.
// Frames shorter than three bytes fail with contracts.ErrMalformedFrame.
func (d *Decoder) Decode(frame contracts.RawFrame) (ev contracts.NoteEvent, ok bool, err error) {
	if len(frame.Data) < 3 {
		return contracts.NoteEvent{}, false, fmt.Errorf("%w: got %d bytes", contracts.ErrMalformedFrame, len(frame.Data))
	}

	status := frame.Data[0]
	note := int(frame.Data[1])
	velocity := int(frame.Data[2])

	switch {
	case d.noteOff[status]:
		return noteOff(note, velocity), true, nil
	case d.noteOn[status]:
		return noteOn(note, velocity), true, nil
	}

	switch status & contracts.StatusMask {
	case contracts.StatusNoteOn:
		return noteOn(note, velocity), true, nil
	case contracts.StatusNoteOff:
		return noteOff(note, velocity), true, nil
	}
	return contracts.NoteEvent{}, false, nil
}

// noteOn applies the zero-velocity convention: a Note On without velocity is a release.
func noteOn(note, velocity int) contracts.NoteEvent {
	if velocity == 0 {
		return noteOff(note, 0)
	}
	return contracts.NoteEvent{Note: note, Velocity: velocity, Kind: contracts.NoteOn}
}

func noteOff(note, velocity int) contracts.NoteEvent {
	return contracts.NoteEvent{Note: note, Velocity: velocity, Kind: contracts.NoteOff}
}
