package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/leandrodaf/keysync/internal/bus"
	"github.com/leandrodaf/keysync/internal/logger"
	"github.com/leandrodaf/keysync/internal/midi/midifake"
	"github.com/leandrodaf/keysync/sdk/contracts"
)

type harness struct {
	access *midifake.Access
	bus    *bus.Bus
	reg    *Registry
	events map[string][]any
}

func newHarness(t *testing.T, dispatch func(func())) *harness {
	t.Helper()
	log := logger.NewNopLogger()
	h := &harness{
		access: midifake.New(),
		bus:    bus.New(log),
		events: make(map[string][]any),
	}
	for _, name := range []string{contracts.EventReady, contracts.EventError, contracts.EventDevicesChanged} {
		name := name
		h.bus.Subscribe(name, func(p any) { h.events[name] = append(h.events[name], p) })
	}
	h.reg = New(h.access, h.bus, log, dispatch)
	return h
}

func (h *harness) initialize(t *testing.T) {
	t.Helper()
	if err := h.reg.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func TestInitializePopulatesDevices(t *testing.T) {
	h := newHarness(t, nil)
	h.access.AddInput("in-1", "Launchkey 49", "Novation")
	h.access.AddInput("in-2", "Keystation", "M-Audio")
	h.access.AddOutput("out-1", "Launchkey 49", "Novation")

	if got := h.reg.ListInputs(); len(got) != 0 {
		t.Fatalf("inputs listed before ready: %+v", got)
	}

	h.initialize(t)

	inputs := h.reg.ListInputs()
	if len(inputs) != 2 || inputs[0].ID != "in-1" || inputs[1].ID != "in-2" {
		t.Fatalf("inputs = %+v", inputs)
	}
	if inputs[0].Manufacturer != "Novation" || inputs[0].State != contracts.Connected {
		t.Errorf("input info = %+v", inputs[0])
	}
	if outputs := h.reg.ListOutputs(); len(outputs) != 1 || outputs[0].ID != "out-1" {
		t.Errorf("outputs = %+v", outputs)
	}
	if len(h.events[contracts.EventReady]) != 1 {
		t.Errorf("expected one ready event, got %d", len(h.events[contracts.EventReady]))
	}
	if !h.reg.Ready() {
		t.Error("registry not ready")
	}
}

func TestInitializeFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unsupported", contracts.ErrCapabilityUnsupported, contracts.ErrCapabilityUnsupported},
		{"denied", contracts.ErrPermissionDenied, contracts.ErrPermissionDenied},
		{"driver failure", errors.New("no sound server"), contracts.ErrCapabilityUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.access.AddInput("in-1", "Keys", "Acme")
			h.access.FailAccess(tt.err)

			err := h.reg.Initialize(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Initialize error = %v, want %v", err, tt.want)
			}
			if len(h.events[contracts.EventReady]) != 0 {
				t.Error("ready published after failure")
			}
			if len(h.events[contracts.EventError]) != 1 {
				t.Fatalf("expected one error event, got %d", len(h.events[contracts.EventError]))
			}
			if len(h.reg.ListInputs()) != 0 {
				t.Error("registry populated after failure")
			}
			if h.reg.BindListener("in-1", func(contracts.RawFrame) {}) {
				t.Error("bound a listener without access")
			}
		})
	}
}

func TestBindListener(t *testing.T) {
	h := newHarness(t, nil)
	port := h.access.AddInput("in-1", "Keys", "Acme")
	h.initialize(t)

	if h.reg.BindListener("missing", func(contracts.RawFrame) {}) {
		t.Fatal("bound unknown device")
	}

	var got []contracts.RawFrame
	if !h.reg.BindListener("in-1", func(f contracts.RawFrame) { got = append(got, f) }) {
		t.Fatal("BindListener failed")
	}
	port.Emit(0x90, 60, 100)

	if len(got) != 1 || got[0].Data[1] != 60 || got[0].Timestamp == 0 {
		t.Fatalf("frames = %+v", got)
	}
}

func TestRebindReplacesPreviousHandler(t *testing.T) {
	h := newHarness(t, nil)
	port := h.access.AddInput("in-1", "Keys", "Acme")
	h.initialize(t)

	first, second := 0, 0
	h.reg.BindListener("in-1", func(contracts.RawFrame) { first++ })
	h.reg.BindListener("in-1", func(contracts.RawFrame) { second++ })
	port.Emit(0x90, 60, 100)

	if first != 0 || second != 1 {
		t.Fatalf("first=%d second=%d", first, second)
	}
}

func TestUnbindListener(t *testing.T) {
	h := newHarness(t, nil)
	port := h.access.AddInput("in-1", "Keys", "Acme")
	h.initialize(t)

	calls := 0
	h.reg.BindListener("in-1", func(contracts.RawFrame) { calls++ })
	if !h.reg.UnbindListener("in-1") {
		t.Fatal("UnbindListener failed")
	}
	if h.reg.UnbindListener("missing") {
		t.Fatal("unbound unknown device")
	}
	if port.Emit(0x90, 60, 100) {
		t.Fatal("port still has a handler attached")
	}
	if calls != 0 {
		t.Fatalf("handler called %d times after unbind", calls)
	}
}

func TestRescanDropsBindings(t *testing.T) {
	h := newHarness(t, nil)
	port := h.access.AddInput("in-1", "Keys", "Acme")
	h.initialize(t)

	calls := 0
	handler := func(contracts.RawFrame) { calls++ }
	h.reg.BindListener("in-1", handler)
	port.Emit(0x90, 60, 100)

	h.access.AddInput("in-2", "Pads", "Acme")
	h.reg.Rescan()

	changed := h.events[contracts.EventDevicesChanged]
	if len(changed) != 1 {
		t.Fatalf("expected one devices-changed event, got %d", len(changed))
	}
	if list := changed[0].([]contracts.DeviceInfo); len(list) != 2 {
		t.Fatalf("devices-changed payload = %+v", list)
	}

	port.Emit(0x90, 62, 100)
	if calls != 1 {
		t.Fatalf("frame after rescan reached the old handler (calls=%d)", calls)
	}

	h.reg.BindListener("in-1", handler)
	port.Emit(0x90, 64, 100)
	if calls != 2 {
		t.Fatalf("re-bound handler not called (calls=%d)", calls)
	}
}

func TestRescanRemovesUnpluggedDevice(t *testing.T) {
	h := newHarness(t, nil)
	h.access.AddInput("in-1", "Keys", "Acme")
	h.initialize(t)

	h.access.RemoveInput("in-1")
	h.reg.Rescan()

	if got := h.reg.ListInputs(); len(got) != 0 {
		t.Fatalf("inputs after unplug = %+v", got)
	}
	if h.reg.BindListener("in-1", func(contracts.RawFrame) {}) {
		t.Fatal("bound an unplugged device")
	}
}

func TestRescanBeforeReadyIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.access.AddInput("in-1", "Keys", "Acme")

	h.reg.Rescan()

	if len(h.events[contracts.EventDevicesChanged]) != 0 || len(h.reg.ListInputs()) != 0 {
		t.Fatal("rescan before access populated the registry")
	}
}

func TestStaleHandle(t *testing.T) {
	h := newHarness(t, nil)
	h.access.AddInput("in-1", "Keys", "Acme")
	h.initialize(t)

	handle, err := h.reg.Bind("in-1", func(contracts.RawFrame) {})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	h.reg.Rescan()

	if err := h.reg.Unbind(handle); !errors.Is(err, contracts.ErrStaleGeneration) {
		t.Fatalf("Unbind stale handle = %v, want ErrStaleGeneration", err)
	}

	fresh, err := h.reg.Bind("in-1", func(contracts.RawFrame) {})
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if fresh.Generation != handle.Generation+1 {
		t.Fatalf("generation = %d, want %d", fresh.Generation, handle.Generation+1)
	}
	if err := h.reg.Unbind(fresh); err != nil {
		t.Fatalf("Unbind fresh handle: %v", err)
	}
	if _, err := h.reg.Bind("nope", nil); !errors.Is(err, contracts.ErrUnknownDevice) {
		t.Fatalf("Bind unknown = %v, want ErrUnknownDevice", err)
	}
}

func TestQueuedFrameFromRevokedBindingIsDropped(t *testing.T) {
	var queue []func()
	h := newHarness(t, func(fn func()) { queue = append(queue, fn) })
	port := h.access.AddInput("in-1", "Keys", "Acme")

	if err := h.reg.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	drain := func() {
		for len(queue) > 0 {
			fn := queue[0]
			queue = queue[1:]
			fn()
		}
	}
	drain()

	calls := 0
	h.reg.BindListener("in-1", func(contracts.RawFrame) { calls++ })
	port.Emit(0x90, 60, 100) // queued, not yet run
	h.reg.Rescan()
	drain()

	if calls != 0 {
		t.Fatalf("frame queued before rescan was delivered (calls=%d)", calls)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, nil)
	port := h.access.AddInput("in-1", "Keys", "Acme")
	h.initialize(t)

	h.reg.BindListener("in-1", func(contracts.RawFrame) {})
	if err := h.reg.Close(); err != nil {
		t.Fatal(err)
	}
	if port.Listening() {
		t.Fatal("listener still attached after Close")
	}
}
