// Package keysync assembles one participant of a shared keyboard session: MIDI device access,
// note decoding, the leader/follower synchronizer and the key animation, all driven by a single
// event loop.
package keysync

import (
	"context"
	"errors"

	"github.com/leandrodaf/keysync/internal/adapter"
	"github.com/leandrodaf/keysync/internal/animation"
	"github.com/leandrodaf/keysync/internal/bus"
	"github.com/leandrodaf/keysync/internal/leader"
	"github.com/leandrodaf/keysync/internal/loop"
	"github.com/leandrodaf/keysync/internal/midi/decoder"
	"github.com/leandrodaf/keysync/internal/midi/registry"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/leandrodaf/keysync/sdk/midi"
	"go.uber.org/multierr"
)

// ErrNotRunning is returned by KeyState when the event loop stopped before answering.
var ErrNotRunning = errors.New("participant is not running")

// Participant wires every component of one session member around its event loop.
type Participant struct {
	options  contracts.ClientOptions
	access   contracts.Access
	logger   contracts.Logger
	loop     *loop.Loop
	bus      *bus.Bus
	registry *registry.Registry
	adapter  *adapter.Publisher
	animator *animation.Animator
	sync     *leader.Synchronizer
}

// NewParticipant builds a participant over the given device access, broadcast channel and render proxy.
func NewParticipant(access contracts.Access, channel contracts.BroadcastChannel, proxy contracts.Proxy, opts ...contracts.Option) (*Participant, error) {
	options, err := midi.ApplyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	log := options.Logger
	l := loop.New(options.QueueSize, log)
	b := bus.New(log)
	reg := registry.New(access, b, log, l.Dispatch)
	pub := adapter.New(b, decoder.New(*options.Variants), log)
	anim := animation.New(*options.Animation, proxy)
	frames := func(f contracts.RawFrame) { pub.HandleFrame(f) }
	s := leader.New(leader.Config{Topic: options.SyncTopic}, reg, frames, b, channel, anim, log, l.Dispatch)

	return &Participant{
		options:  options,
		access:   access,
		logger:   log,
		loop:     l,
		bus:      b,
		registry: reg,
		adapter:  pub,
		animator: anim,
		sync:     s,
	}, nil
}

// Run starts the synchronizer, requests MIDI access in the background and runs the event loop
// until ctx is done. A denied or missing MIDI capability leaves the participant a follower.
func (p *Participant) Run(ctx context.Context) error {
	p.bus.Subscribe(contracts.EventReady, func(any) {
		go p.forwardChanges(ctx, p.access.Changes())
	})
	p.loop.Post(p.sync.Start)

	go func() {
		if err := p.registry.Initialize(ctx); err != nil {
			p.logger.Debug("Participant continues without MIDI input", p.logger.Field().Error("error", err))
		}
	}()

	p.logger.Info("Participant started", p.logger.Field().String("topic", p.options.SyncTopic))
	return p.loop.Run(ctx, p.options.TickInterval, p.animator.Tick)
}

func (p *Participant) forwardChanges(ctx context.Context, changes <-chan struct{}) {
	if changes == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			p.loop.Post(p.registry.Rescan)
		}
	}
}

// IsLeader reports whether this participant has bound a local input device.
func (p *Participant) IsLeader() bool {
	return p.sync.IsLeader()
}

// BoundDevice returns the id of the input this participant leads from, or "".
func (p *Participant) BoundDevice() string {
	return p.sync.BoundDevice()
}

// Bus returns the participant's event bus for additional subscribers.
func (p *Participant) Bus() contracts.EventBus {
	return p.bus
}

// Devices lists the enumerated input devices.
func (p *Participant) Devices() []contracts.DeviceInfo {
	return p.registry.ListInputs()
}

// Outputs lists the enumerated output devices.
func (p *Participant) Outputs() []contracts.DeviceInfo {
	return p.registry.ListOutputs()
}

// KeyState reads the key animation state on the event loop.
func (p *Participant) KeyState(ctx context.Context) (animation.State, error) {
	result := make(chan animation.State, 1)
	if !p.loop.Post(func() { result <- p.animator.State() }) {
		return animation.State{}, ErrNotRunning
	}
	select {
	case st := <-result:
		return st, nil
	case <-ctx.Done():
		return animation.State{}, ctx.Err()
	}
}

// Close unbinds the synchronizer's device, detaches every listener and releases the device access.
func (p *Participant) Close() error {
	return multierr.Combine(
		p.sync.Close(),
		p.registry.Close(),
		p.access.Close(),
	)
}
