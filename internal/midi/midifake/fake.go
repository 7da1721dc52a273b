// Package midifake is a scriptable in-memory device-access backend.
package midifake

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// Port is a fake input port. Frames are injected with Emit.
type Port struct {
	info  contracts.DeviceInfo
	clock *atomic.Uint64

	mu      sync.Mutex
	handler contracts.FrameHandler
	token   uint64
}

// Info implements contracts.InputPort.
func (p *Port) Info() contracts.DeviceInfo {
	return p.info
}

// Listen implements contracts.InputPort. Only the latest handler is kept.
func (p *Port) Listen(handler contracts.FrameHandler) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token++
	token := p.token
	p.handler = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.token == token {
			p.handler = nil
		}
	}, nil
}

// Listening reports whether a handler is attached.
func (p *Port) Listening() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler != nil
}

// Emit delivers data to the attached handler and reports whether one was attached.
func (p *Port) Emit(data ...byte) bool {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h == nil {
		return false
	}
	h(contracts.RawFrame{Data: data, Timestamp: p.clock.Add(1)})
	return true
}

// Access is a fake contracts.Access.
type Access struct {
	mu        sync.Mutex
	inputs    []*Port
	outputs   []contracts.DeviceInfo
	accessErr error
	requests  int
	changes   chan struct{}
	clock     atomic.Uint64
}

// New creates an Access with no devices.
func New() *Access {
	return &Access{changes: make(chan struct{}, 1)}
}

// FailAccess makes RequestAccess return err.
func (a *Access) FailAccess(err error) {
	a.mu.Lock()
	a.accessErr = err
	a.mu.Unlock()
}

// AddInput adds an input port without signalling a change.
func (a *Access) AddInput(id, name, manufacturer string) *Port {
	p := &Port{
		info: contracts.DeviceInfo{
			ID:           id,
			Name:         name,
			Manufacturer: manufacturer,
			State:        contracts.Connected,
		},
		clock: &a.clock,
	}
	a.mu.Lock()
	a.inputs = append(a.inputs, p)
	a.mu.Unlock()
	return p
}

// AddOutput adds an output port without signalling a change.
func (a *Access) AddOutput(id, name, manufacturer string) {
	a.mu.Lock()
	a.outputs = append(a.outputs, contracts.DeviceInfo{
		ID:           id,
		Name:         name,
		Manufacturer: manufacturer,
		State:        contracts.Connected,
	})
	a.mu.Unlock()
}

// RemoveInput removes an input port without signalling a change.
func (a *Access) RemoveInput(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, p := range a.inputs {
		if p.info.ID == id {
			a.inputs = append(a.inputs[:i:i], a.inputs[i+1:]...)
			return
		}
	}
}

// Input returns the input port with id, or nil.
func (a *Access) Input(id string) *Port {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range a.inputs {
		if p.info.ID == id {
			return p
		}
	}
	return nil
}

// Notify signals a hot-plug change. Pending signals coalesce.
func (a *Access) Notify() {
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

// Requests reports how many times RequestAccess was called.
func (a *Access) Requests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests
}

// RequestAccess implements contracts.Access.
func (a *Access) RequestAccess(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests++
	return a.accessErr
}

// Inputs implements contracts.Access.
func (a *Access) Inputs() ([]contracts.InputPort, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ports := make([]contracts.InputPort, len(a.inputs))
	for i, p := range a.inputs {
		ports[i] = p
	}
	return ports, nil
}

// Outputs implements contracts.Access.
func (a *Access) Outputs() ([]contracts.DeviceInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]contracts.DeviceInfo(nil), a.outputs...), nil
}

// Changes implements contracts.Access.
func (a *Access) Changes() <-chan struct{} {
	return a.changes
}

// Close implements contracts.Access.
func (a *Access) Close() error {
	return nil
}
