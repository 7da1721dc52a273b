// Package registry tracks the MIDI ports reported by the platform and owns the single
// listener binding of each input.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// Handle identifies a listener binding. It is only valid for the generation it was bound under;
// every rescan starts a new generation.
type Handle struct {
	DeviceID   string
	Generation uint64
}

type input struct {
	port  contracts.InputPort
	stop  func()
	token uint64 // changes on every bind and unbind
}

// Registry enumerates ports and hot-swaps them on every change notification.
// The device maps are rebuilt wholesale on each rescan and listener bindings do not survive it;
// consumers re-bind on "devices-changed".
type Registry struct {
	access   contracts.Access
	bus      contracts.EventBus
	logger   contracts.Logger
	dispatch func(func())

	mu         sync.Mutex
	ready      bool
	generation uint64
	inputs     map[string]*input
	inputInfo  []contracts.DeviceInfo
	outputInfo []contracts.DeviceInfo
}

// New creates an empty registry. dispatch schedules work on the owning event loop; nil runs it inline.
func New(access contracts.Access, bus contracts.EventBus, logger contracts.Logger, dispatch func(func())) *Registry {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Registry{
		access:   access,
		bus:      bus,
		logger:   logger,
		dispatch: dispatch,
		inputs:   make(map[string]*input),
	}
}

// Initialize requests platform MIDI access. It may block on a permission prompt, so callers run
// it in its own goroutine and react to the "ready" or "error" event. On failure the registry
// stays empty for the rest of the session.
func (r *Registry) Initialize(ctx context.Context) error {
	if err := r.access.RequestAccess(ctx); err != nil {
		if !errors.Is(err, contracts.ErrCapabilityUnsupported) && !errors.Is(err, contracts.ErrPermissionDenied) {
			err = fmt.Errorf("%w: %w", contracts.ErrCapabilityUnsupported, err)
		}
		r.dispatch(func() {
			r.logger.Error("MIDI access unavailable; device input disabled", r.logger.Field().Error("error", err))
			r.bus.Publish(contracts.EventError, err)
		})
		return err
	}

	r.dispatch(func() {
		r.mu.Lock()
		r.ready = true
		r.mu.Unlock()

		r.rescan()
		r.logger.Info("MIDI access granted",
			r.logger.Field().Int("inputs", len(r.ListInputs())),
			r.logger.Field().Int("outputs", len(r.ListOutputs())))
		r.bus.Publish(contracts.EventReady, nil)
	})
	return nil
}

// Ready reports whether access was granted.
func (r *Registry) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Generation returns the current rescan generation.
func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Rescan handles a hot-plug notification: every binding is dropped, both device sets are
// enumerated again and "devices-changed" is published with the new inputs.
func (r *Registry) Rescan() {
	if !r.Ready() {
		r.logger.Debug("Ignoring device change before MIDI access")
		return
	}
	r.rescan()
	r.bus.Publish(contracts.EventDevicesChanged, r.ListInputs())
}

func (r *Registry) rescan() {
	r.mu.Lock()
	r.stopAll()
	r.generation++
	r.inputs = make(map[string]*input)
	r.inputInfo = nil
	r.outputInfo = nil

	ports, err := r.access.Inputs()
	if err != nil {
		r.logger.Warn("Failed to enumerate MIDI inputs", r.logger.Field().Error("error", err))
	}
	for _, port := range ports {
		info := port.Info()
		if _, dup := r.inputs[info.ID]; dup {
			r.logger.Warn("Duplicate MIDI input id; ignoring", r.logger.Field().String("device", info.ID))
			continue
		}
		r.inputs[info.ID] = &input{port: port}
		r.inputInfo = append(r.inputInfo, info)
	}

	outputs, err := r.access.Outputs()
	if err != nil {
		r.logger.Warn("Failed to enumerate MIDI outputs", r.logger.Field().Error("error", err))
	}
	r.outputInfo = append(r.outputInfo, outputs...)

	generation := r.generation
	inputs := describe(r.inputInfo)
	outputLines := describe(r.outputInfo)
	r.mu.Unlock()

	r.logger.Info("MIDI devices updated",
		r.logger.Field().Uint64("generation", generation),
		r.logger.Field().Strings("inputs", inputs),
		r.logger.Field().Strings("outputs", outputLines))
}

func describe(devices []contracts.DeviceInfo) []string {
	lines := make([]string, len(devices))
	for i, d := range devices {
		lines[i] = fmt.Sprintf("%s (%s) - %s", d.Name, d.Manufacturer, d.State)
	}
	return lines
}

// ListInputs returns the inputs in enumeration order. It is empty before access is granted.
func (r *Registry) ListInputs() []contracts.DeviceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contracts.DeviceInfo{}, r.inputInfo...)
}

// ListOutputs returns the outputs in enumeration order.
func (r *Registry) ListOutputs() []contracts.DeviceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contracts.DeviceInfo{}, r.outputInfo...)
}

// Bind installs handler for every frame of the input with id, silently replacing any previous
// handler. Frames run through the dispatcher and are dropped once the binding is replaced,
// removed or outlived by a rescan.
func (r *Registry) Bind(id string, handler contracts.FrameHandler) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.inputs[id]
	if !ok {
		return Handle{}, fmt.Errorf("%w: %s", contracts.ErrUnknownDevice, id)
	}
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
	in.token++

	h := Handle{DeviceID: id, Generation: r.generation}
	token := in.token
	stop, err := in.port.Listen(func(frame contracts.RawFrame) {
		r.dispatch(func() {
			if !r.current(h, token) {
				r.logger.Debug("Dropping frame from revoked binding", r.logger.Field().String("device", id))
				return
			}
			handler(frame)
		})
	})
	if err != nil {
		return Handle{}, fmt.Errorf("listen on %s: %w", id, err)
	}
	in.stop = stop
	return h, nil
}

// Unbind removes the binding identified by h.
func (r *Registry) Unbind(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.Generation != r.generation {
		return fmt.Errorf("%w: %s bound under generation %d, current %d",
			contracts.ErrStaleGeneration, h.DeviceID, h.Generation, r.generation)
	}
	return r.unbindLocked(h.DeviceID)
}

// BindListener is Bind reporting success as a bool.
func (r *Registry) BindListener(id string, handler contracts.FrameHandler) bool {
	if _, err := r.Bind(id, handler); err != nil {
		r.logger.Warn("Could not bind MIDI input", r.logger.Field().String("device", id), r.logger.Field().Error("error", err))
		return false
	}
	r.logger.Info("MIDI input listener bound", r.logger.Field().String("device", id))
	return true
}

// UnbindListener removes the handler of the input with id. It reports false for unknown ids.
func (r *Registry) UnbindListener(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbindLocked(id) == nil
}

func (r *Registry) unbindLocked(id string) error {
	in, ok := r.inputs[id]
	if !ok {
		return fmt.Errorf("%w: %s", contracts.ErrUnknownDevice, id)
	}
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
	in.token++
	return nil
}

func (r *Registry) current(h Handle, token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.Generation != r.generation {
		return false
	}
	in, ok := r.inputs[h.DeviceID]
	return ok && in.token == token
}

func (r *Registry) stopAll() {
	for _, in := range r.inputs {
		if in.stop != nil {
			in.stop()
			in.stop = nil
		}
		in.token++
	}
}

// Close detaches every listener.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopAll()
	return nil
}
