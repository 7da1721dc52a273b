package decoder

import (
	"errors"
	"testing"

	"github.com/leandrodaf/keysync/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

func frame(data ...byte) contracts.RawFrame {
	return contracts.RawFrame{Data: data, Timestamp: 1}
}

func TestDecode(t *testing.T) {
	d := New(contracts.DefaultVariantTable())

	tests := []struct {
		name   string
		frame  contracts.RawFrame
		want   contracts.NoteEvent
		wantOK bool
	}{
		{"note on", frame(0x90, 60, 100), contracts.NoteEvent{Note: 60, Velocity: 100, Kind: contracts.NoteOn}, true},
		{"note on other channel", frame(0x91, 60, 100), contracts.NoteEvent{Note: 60, Velocity: 100, Kind: contracts.NoteOn}, true},
		{"zero velocity note on", frame(0x90, 60, 0), contracts.NoteEvent{Note: 60, Kind: contracts.NoteOff}, true},
		{"note off", frame(0x80, 60, 0), contracts.NoteEvent{Note: 60, Kind: contracts.NoteOff}, true},
		{"note off keeps release velocity", frame(0x8F, 61, 40), contracts.NoteEvent{Note: 61, Velocity: 40, Kind: contracts.NoteOff}, true},
		{"vendor note on", frame(0x97, 50, 90), contracts.NoteEvent{Note: 50, Velocity: 90, Kind: contracts.NoteOn}, true},
		{"vendor note on zero velocity", frame(0x97, 50, 0), contracts.NoteEvent{Note: 50, Kind: contracts.NoteOff}, true},
		{"vendor note off", frame(0x87, 50, 0), contracts.NoteEvent{Note: 50, Kind: contracts.NoteOff}, true},
		{"control change is a no-op", frame(0xB0, 7, 127), contracts.NoteEvent{}, false},
		{"pitch bend is a no-op", frame(0xE0, 0, 64), contracts.NoteEvent{}, false},
		{"system message is a no-op", frame(0xF8, 0, 0), contracts.NoteEvent{}, false},
		{"longer frame uses first three bytes", frame(0x90, 62, 10, 0x80), contracts.NoteEvent{Note: 62, Velocity: 10, Kind: contracts.NoteOn}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := d.Decode(tt.frame)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Decode = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeZeroVelocityMatchesNoteOff(t *testing.T) {
	d := New(contracts.DefaultVariantTable())

	a, _, _ := d.Decode(frame(0x90, 60, 0))
	b, _, _ := d.Decode(frame(0x80, 60, 0))
	if a != b {
		t.Fatalf("zero-velocity note on %+v differs from note off %+v", a, b)
	}
	if a.Kind != contracts.NoteOff || a.Note != 60 {
		t.Fatalf("expected NoteOff(60), got %+v", a)
	}
}

func TestDecodeIsTotalOverWellFormedFrames(t *testing.T) {
	d := New(contracts.DefaultVariantTable())

	for status := 0; status < 256; status++ {
		for _, velocity := range []byte{0, 1, 127} {
			ev, ok, err := d.Decode(frame(byte(status), 64, velocity))
			if err != nil {
				t.Fatalf("status 0x%02X: unexpected error %v", status, err)
			}
			if !ok {
				continue
			}
			if ev.Kind == contracts.NoteOn && ev.Velocity == 0 {
				t.Fatalf("status 0x%02X: NoteOn with zero velocity", status)
			}
		}
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	d := New(contracts.DefaultVariantTable())

	for _, data := range [][]byte{nil, {0x90}, {0x90, 60}} {
		_, ok, err := d.Decode(frame(data...))
		if !errors.Is(err, contracts.ErrMalformedFrame) {
			t.Errorf("%v: expected ErrMalformedFrame, got %v", data, err)
		}
		if ok {
			t.Errorf("%v: malformed frame reported ok", data)
		}
	}
}

func TestDecodeCustomVariants(t *testing.T) {
	// A controller that reports key presses as polyphonic aftertouch on channel 1.
	d := New(contracts.VariantTable{NoteOn: []byte{0xA0}, NoteOff: []byte{0x95}})

	ev, ok, _ := d.Decode(frame(0xA0, 48, 70))
	if !ok || ev.Kind != contracts.NoteOn {
		t.Errorf("custom note on variant: got %+v ok=%v", ev, ok)
	}

	// The NoteOff variant takes precedence over the standard nibble classification.
	ev, ok, _ = d.Decode(frame(0x95, 48, 70))
	if !ok || ev.Kind != contracts.NoteOff {
		t.Errorf("custom note off variant: got %+v ok=%v", ev, ok)
	}
}

func TestDecodeGomidiMessages(t *testing.T) {
	d := New(contracts.VariantTable{})

	ev, ok, err := d.Decode(frame(midi.NoteOn(3, 72, 90)...))
	if err != nil || !ok || ev != (contracts.NoteEvent{Note: 72, Velocity: 90, Kind: contracts.NoteOn}) {
		t.Errorf("NoteOn: got %+v ok=%v err=%v", ev, ok, err)
	}

	ev, ok, err = d.Decode(frame(midi.NoteOffVelocity(3, 72, 20)...))
	if err != nil || !ok || ev.Kind != contracts.NoteOff {
		t.Errorf("NoteOff: got %+v ok=%v err=%v", ev, ok, err)
	}
}
