//go:build darwin
// +build darwin

package mididarwin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/keysync/internal/midi/hotplug"
	"github.com/leandrodaf/keysync/internal/midi/portutil"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for CoreMIDI connection issues.
var (
	ErrNoClient        = errors.New("CoreMIDI client not initialized")
	ErrCreateInputPort = errors.New("error creating input port")
	ErrConnectSource   = errors.New("error connecting to MIDI source")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// Access exposes CoreMIDI sources and destinations as a contracts.Access.
// The CoreMIDI client is created on RequestAccess; port changes are detected by polling.
type Access struct {
	logger       contracts.Logger
	clientName   string
	pollInterval time.Duration

	mu      sync.Mutex
	client  coremidi.Client
	granted bool
	changes <-chan struct{}
	cancel  context.CancelFunc
}

// NewAccess creates the CoreMIDI backend.
func NewAccess(options *contracts.ClientOptions) (contracts.Access, error) {
	options.Logger.Info("CoreMIDI device access selected")
	return &Access{
		logger:       options.Logger,
		clientName:   options.CoreMIDIConfig.ClientName,
		pollInterval: options.PollInterval,
	}, nil
}

// RequestAccess creates the CoreMIDI client and starts watching for port changes.
func (a *Access) RequestAccess(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.granted {
		return nil
	}

	client, err := coremidi.NewClient(a.clientName)
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrCapabilityUnsupported, err)
	}
	a.client = client
	a.granted = true

	watchCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.changes = hotplug.Watch(watchCtx, a.pollInterval, a.portNames, a.logger)

	a.logger.Info("CoreMIDI client successfully created", a.logger.Field().String("client", a.clientName))
	return nil
}

func (a *Access) portNames() ([]string, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, err
	}
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(sources)+len(destinations))
	for _, s := range sources {
		names = append(names, "in:"+s.Name())
	}
	for _, d := range destinations {
		names = append(names, "out:"+d.Name())
	}
	return names, nil
}

// Inputs lists the CoreMIDI sources.
func (a *Access) Inputs() ([]contracts.InputPort, error) {
	a.mu.Lock()
	client, granted := a.client, a.granted
	a.mu.Unlock()
	if !granted {
		return nil, ErrNoClient
	}

	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	ids := portutil.UniqueIDs(names)

	ports := make([]contracts.InputPort, len(sources))
	for i, source := range sources {
		ports[i] = &inputPort{
			client: client,
			source: source,
			logger: a.logger,
			info: contracts.DeviceInfo{
				ID:           ids[i],
				Name:         source.Name(),
				Manufacturer: source.Entity().Manufacturer(),
				State:        contracts.Connected,
			},
		}
	}
	return ports, nil
}

// Outputs lists the CoreMIDI destinations.
func (a *Access) Outputs() ([]contracts.DeviceInfo, error) {
	destinations, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}

	names := make([]string, len(destinations))
	for i, d := range destinations {
		names[i] = d.Name()
	}
	ids := portutil.UniqueIDs(names)

	devices := make([]contracts.DeviceInfo, len(destinations))
	for i, d := range destinations {
		devices[i] = contracts.DeviceInfo{
			ID:           ids[i],
			Name:         d.Name(),
			Manufacturer: d.Entity().Manufacturer(),
			State:        contracts.Connected,
		}
	}
	return devices, nil
}

// Changes signals port changes once access was granted.
func (a *Access) Changes() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changes
}

// Close stops the change watcher.
func (a *Access) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	return nil
}

// inputPort is one CoreMIDI source. Each Listen opens a fresh input port connected to the source.
type inputPort struct {
	client coremidi.Client
	source coremidi.Source
	logger contracts.Logger
	info   contracts.DeviceInfo

	mu       sync.Mutex
	portConn internalPortConnection
}

func (p *inputPort) Info() contracts.DeviceInfo {
	return p.info
}

// Listen connects the source and forwards every packet to handler, replacing any previous connection.
func (p *inputPort) Listen(handler contracts.FrameHandler) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.portConn != nil {
		p.portConn.Disconnect()
		p.portConn = nil
	}

	port, err := coremidi.NewInputPort(p.client, "keysync input", func(_ coremidi.Source, packet coremidi.Packet) {
		now := portutil.Now()
		for _, data := range portutil.SplitFrames(packet.Data) {
			handler(contracts.RawFrame{Data: data, Timestamp: now})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	conn, err := port.Connect(p.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectSource, err)
	}
	p.portConn = conn
	p.logger.Info("MIDI source connected", p.logger.Field().String("device", p.info.ID))

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.portConn == conn {
			p.portConn.Disconnect()
			p.portConn = nil
		}
	}, nil
}
