package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/keysync/internal/logger"
	"github.com/leandrodaf/keysync/internal/transport/loopback"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/leandrodaf/keysync/sdk/keysync"
	"github.com/leandrodaf/keysync/sdk/midi"
)

// nopProxy discards key positions; this example only prints notes.
type nopProxy struct{}

func (nopProxy) SetPosition(x, y float64) {}

func main() {
	log := logger.NewDevelopmentLogger()

	access, err := midi.NewAccess(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
	)
	if err != nil {
		log.Error("Failed to initialize MIDI access", log.Field().Error("error", err))
		return
	}

	network := loopback.NewNetwork()
	participant, err := keysync.NewParticipant(access, network.Join("solo"), nopProxy{},
		contracts.WithLogger(log),
		contracts.WithVariantTable(contracts.DefaultVariantTable()),
	)
	if err != nil {
		log.Error("Failed to create participant", log.Field().Error("error", err))
		return
	}
	defer participant.Close()

	participant.Bus().Subscribe(contracts.EventReady, func(any) {
		fmt.Println("Available MIDI devices:", participant.Devices())
	})
	participant.Bus().Subscribe(contracts.EventDevicesChanged, func(payload any) {
		devices, _ := payload.([]contracts.DeviceInfo)
		fmt.Println("Available MIDI devices:", devices)
	})
	participant.Bus().Subscribe(contracts.EventNoteOn, func(payload any) {
		ev := payload.(contracts.NoteEvent)
		fmt.Printf("Note On: note=%d velocity=%d\n", ev.Note, ev.Velocity)
	})
	participant.Bus().Subscribe(contracts.EventNoteOff, func(payload any) {
		ev := payload.(contracts.NoteEvent)
		fmt.Printf("Note Off: note=%d\n", ev.Note)
	})
	participant.Bus().Subscribe(contracts.EventError, func(payload any) {
		fmt.Println("MIDI unavailable:", payload)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Play a few keys; press Ctrl+C to stop.")
	if err := participant.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("Participant stopped", log.Field().Error("error", err))
	}
}
