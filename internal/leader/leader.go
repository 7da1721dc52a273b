// Package leader decides which participant is authoritative for the shared key proxy and
// replicates its key state to everyone else.
//
// A participant becomes leader the moment it binds a listener to a local input device and stays
// leader for the rest of the session. The leader applies its own key events locally and
// broadcasts them; followers apply whatever arrives on the sync topic. There is no arbitration
// between two leaders: each ignores the other and every follower shows the last message it
// received.
package leader

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// DeviceBinder is the part of the device registry the synchronizer needs.
type DeviceBinder interface {
	ListInputs() []contracts.DeviceInfo
	BindListener(id string, handler contracts.FrameHandler) bool
	UnbindListener(id string) bool
}

// Applier consumes key state transitions, typically the key animation.
type Applier interface {
	Apply(msg contracts.SyncMessage)
}

// Config holds the synchronizer settings.
type Config struct {
	Topic string // Topic key state is replicated on.
}

// Synchronizer is the leader/follower state machine of one participant.
type Synchronizer struct {
	cfg      Config
	devices  DeviceBinder
	frames   contracts.FrameHandler
	bus      contracts.EventBus
	channel  contracts.BroadcastChannel
	applier  Applier
	logger   contracts.Logger
	dispatch func(func())

	leader atomic.Bool

	mu     sync.Mutex
	bound  string
	unsubs []func()
	closed bool
}

// New creates a follower. frames receives the frames of the device bound once leader, normally
// the bus adapter. dispatch schedules network callbacks on the owning event loop; nil runs them inline.
func New(cfg Config, devices DeviceBinder, frames contracts.FrameHandler, bus contracts.EventBus,
	channel contracts.BroadcastChannel, applier Applier, logger contracts.Logger, dispatch func(func())) *Synchronizer {
	if cfg.Topic == "" {
		cfg.Topic = contracts.DefaultSyncTopic
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Synchronizer{
		cfg:      cfg,
		devices:  devices,
		frames:   frames,
		bus:      bus,
		channel:  channel,
		applier:  applier,
		logger:   logger,
		dispatch: dispatch,
	}
}

// Start subscribes to device and input events, listens on the sync topic and tries to bind a
// device right away in case access was granted before the synchronizer started.
func (s *Synchronizer) Start() {
	rebind := func(any) { s.tryBind() }
	onNote := func(payload any) {
		if ev, ok := payload.(contracts.NoteEvent); ok {
			s.onNote(ev)
		}
	}

	s.mu.Lock()
	s.unsubs = append(s.unsubs,
		s.bus.Subscribe(contracts.EventReady, rebind),
		s.bus.Subscribe(contracts.EventDevicesChanged, rebind),
		s.bus.Subscribe(contracts.EventNoteOn, onNote),
		s.bus.Subscribe(contracts.EventNoteOff, onNote),
	)
	s.mu.Unlock()

	s.channel.OnReceive(s.cfg.Topic, func(payload []byte) {
		s.dispatch(func() { s.onRemote(payload) })
	})

	s.tryBind()
}

// IsLeader reports whether this participant owns a bound device.
func (s *Synchronizer) IsLeader() bool {
	return s.leader.Load()
}

// BoundDevice returns the id of the bound input, or "".
func (s *Synchronizer) BoundDevice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// tryBind binds the first enumerated input. With no inputs the role is left unchanged; a leader
// whose device disappeared stays leader.
func (s *Synchronizer) tryBind() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	inputs := s.devices.ListInputs()
	if len(inputs) == 0 {
		s.logger.Debug("No MIDI inputs to bind", s.logger.Field().Bool("leader", s.IsLeader()))
		return
	}

	id := inputs[0].ID
	if !s.devices.BindListener(id, s.frames) {
		return
	}

	s.mu.Lock()
	s.bound = id
	s.mu.Unlock()

	if !s.leader.Swap(true) {
		s.logger.Info("Became key leader",
			s.logger.Field().String("device", id),
			s.logger.Field().String("name", inputs[0].Name))
	}
}

func (s *Synchronizer) onNote(ev contracts.NoteEvent) {
	if !s.IsLeader() {
		return
	}

	msg := contracts.SyncMessageFrom(ev)
	s.applier.Apply(msg)

	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode key state", s.logger.Field().Error("error", err))
		return
	}
	s.channel.Send(s.cfg.Topic, data)
	s.logger.Debug("Key state broadcast",
		s.logger.Field().Int("note", msg.Note),
		s.logger.Field().Bool("pressed", msg.Pressed))
}

func (s *Synchronizer) onRemote(payload []byte) {
	var msg contracts.SyncMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Warn("Dropping undecodable key state",
			s.logger.Field().Int("bytes", len(payload)),
			s.logger.Field().Error("error", err))
		return
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	if s.IsLeader() {
		s.logger.Debug("Ignoring key state from another participant while leader",
			s.logger.Field().Int("note", msg.Note))
		return
	}
	s.applier.Apply(msg)
}

// Close unsubscribes from the bus and releases the bound listener. The role is kept.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	bound := s.bound
	s.bound = ""
	s.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	if bound != "" && !s.devices.UnbindListener(bound) {
		s.logger.Debug("Bound MIDI input already gone", s.logger.Field().String("device", bound))
	}
	return nil
}
