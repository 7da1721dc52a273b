// Package adapter republishes decoded device frames on the event bus.
package adapter

import (
	"github.com/leandrodaf/keysync/internal/midi/decoder"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

// Publisher decodes frames and publishes the raw and the normalized events for each.
type Publisher struct {
	bus     contracts.EventBus
	decoder *decoder.Decoder
	logger  contracts.Logger
}

// New creates a Publisher.
func New(bus contracts.EventBus, dec *decoder.Decoder, logger contracts.Logger) *Publisher {
	return &Publisher{bus: bus, decoder: dec, logger: logger}
}

// HandleFrame publishes the raw "message" event followed by "input:noteOn" or "input:noteOff"
// when the frame decodes to a note. Malformed frames are logged and dropped without
// reaching any subscriber.
func (p *Publisher) HandleFrame(frame contracts.RawFrame) (contracts.NoteEvent, bool) {
	ev, ok, err := p.decoder.Decode(frame)
	if err != nil {
		p.logger.Warn("Dropping MIDI frame",
			p.logger.Field().Int("length", len(frame.Data)),
			p.logger.Field().Error("error", err))
		return contracts.NoteEvent{}, false
	}

	p.logger.Debug("MIDI message",
		p.logger.Field().String("message", midi.Message(frame.Data).String()),
		p.logger.Field().Uint64("timestamp", frame.Timestamp))

	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)
	p.bus.Publish(contracts.EventMessage, contracts.RawMessage{Data: data, Timestamp: frame.Timestamp})

	if !ok {
		return contracts.NoteEvent{}, false
	}

	switch ev.Kind {
	case contracts.NoteOn:
		p.bus.Publish(contracts.EventNoteOn, ev)
	case contracts.NoteOff:
		p.bus.Publish(contracts.EventNoteOff, ev)
	}
	return ev, true
}
