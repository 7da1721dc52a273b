//go:build rtmidi
// +build rtmidi

package midirtmidi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/keysync/internal/midi/hotplug"
	"github.com/leandrodaf/keysync/internal/midi/portutil"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/multierr"
)

// Access exposes the rtmidi (ALSA, JACK, CoreMIDI or WinMM) ports through gomidi.
type Access struct {
	logger       contracts.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	drv     *rtmididrv.Driver
	changes <-chan struct{}
	cancel  context.CancelFunc
}

// NewAccess creates the rtmidi backend. The driver itself is opened by RequestAccess.
func NewAccess(options *contracts.ClientOptions) (contracts.Access, error) {
	options.Logger.Info("rtmidi device access selected")
	return &Access{logger: options.Logger, pollInterval: options.PollInterval}, nil
}

// RequestAccess opens the rtmidi driver and starts watching for port changes.
func (a *Access) RequestAccess(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.drv != nil {
		return nil
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("%w: rtmididrv: %v", contracts.ErrCapabilityUnsupported, err)
	}
	a.drv = drv

	watchCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.changes = hotplug.Watch(watchCtx, a.pollInterval, a.portNames, a.logger)
	return nil
}

func (a *Access) driver() (*rtmididrv.Driver, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.drv == nil {
		return nil, fmt.Errorf("%w: rtmidi driver not opened", contracts.ErrCapabilityUnsupported)
	}
	return a.drv, nil
}

func (a *Access) portNames() ([]string, error) {
	drv, err := a.driver()
	if err != nil {
		return nil, err
	}
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	outs, err := drv.Outs()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins)+len(outs))
	for _, in := range ins {
		names = append(names, "in:"+in.String())
	}
	for _, out := range outs {
		names = append(names, "out:"+out.String())
	}
	return names, nil
}

// Inputs lists the rtmidi input ports.
func (a *Access) Inputs() ([]contracts.InputPort, error) {
	drv, err := a.driver()
	if err != nil {
		return nil, err
	}
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI inputs: %w", err)
	}

	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	ids := portutil.UniqueIDs(names)

	ports := make([]contracts.InputPort, len(ins))
	for i, in := range ins {
		ports[i] = &inputPort{
			in:     in,
			logger: a.logger,
			info: contracts.DeviceInfo{
				ID:    ids[i],
				Name:  in.String(),
				State: contracts.Connected,
			},
		}
	}
	return ports, nil
}

// Outputs lists the rtmidi output ports.
func (a *Access) Outputs() ([]contracts.DeviceInfo, error) {
	drv, err := a.driver()
	if err != nil {
		return nil, err
	}
	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI outputs: %w", err)
	}

	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	ids := portutil.UniqueIDs(names)

	devices := make([]contracts.DeviceInfo, len(outs))
	for i, out := range outs {
		devices[i] = contracts.DeviceInfo{ID: ids[i], Name: out.String(), State: contracts.Connected}
	}
	return devices, nil
}

// Changes signals port changes once the driver is open.
func (a *Access) Changes() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.changes
}

// Close stops the watcher and closes the driver with every port it opened.
func (a *Access) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.drv == nil {
		return nil
	}
	err := a.drv.Close()
	a.drv = nil
	return err
}

type inputPort struct {
	in     drivers.In
	logger contracts.Logger
	info   contracts.DeviceInfo

	mu   sync.Mutex
	stop func()
}

func (p *inputPort) Info() contracts.DeviceInfo {
	return p.info
}

// Listen opens the port and forwards every message to handler, replacing any previous listener.
func (p *inputPort) Listen(handler contracts.FrameHandler) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		p.stop()
		p.stop = nil
	}

	if err := p.in.Open(); err != nil {
		return nil, fmt.Errorf("open %q: %w", p.info.Name, err)
	}

	stop, err := midi.ListenTo(p.in, func(msg midi.Message, _ int32) {
		handler(contracts.RawFrame{Data: msg.Bytes(), Timestamp: portutil.Now()})
	}, midi.HandleError(func(listenErr error) {
		p.logger.Warn("MIDI listener error",
			p.logger.Field().String("device", p.info.ID),
			p.logger.Field().Error("error", listenErr))
	}))
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("listen %q: %w", p.info.Name, err), p.in.Close())
	}
	p.stop = stop

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stop == nil {
			return
		}
		p.stop()
		p.stop = nil
		if err := p.in.Close(); err != nil {
			p.logger.Warn("Failed to close MIDI input", p.logger.Field().String("device", p.info.ID), p.logger.Field().Error("error", err))
		}
	}, nil
}
