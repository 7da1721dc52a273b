//go:build windows
// +build windows

package midiwindows

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/leandrodaf/keysync/internal/midi/hotplug"
	"github.com/leandrodaf/keysync/internal/midi/portutil"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// Struct representing MIDI input device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs  = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps  = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen        = winmm.NewProc("midiInOpen")
	procMidiInStart       = winmm.NewProc("midiInStart")
	procMidiInStop        = winmm.NewProc("midiInStop")
	procMidiInReset       = winmm.NewProc("midiInReset")
	procMidiInClose       = winmm.NewProc("midiInClose")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
)

// The callback is created once; Windows limits the number of callbacks a process may create.
var (
	midiInCallbackPtr = windows.NewCallback(midiInCallback)
	openPorts         sync.Map // instance id -> *inputPort
	nextInstance      atomic.Uintptr
)

// Access exposes the winmm MIDI devices as a contracts.Access.
type Access struct {
	logger       contracts.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	granted bool
	changes <-chan struct{}
	cancel  context.CancelFunc
}

// NewAccess creates the winmm backend.
func NewAccess(options *contracts.ClientOptions) (contracts.Access, error) {
	options.Logger.Info("winmm device access selected")
	return &Access{logger: options.Logger, pollInterval: options.PollInterval}, nil
}

// RequestAccess loads winmm.dll and starts watching for device changes.
func (a *Access) RequestAccess(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.granted {
		return nil
	}
	if err := winmm.Load(); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrCapabilityUnsupported, err)
	}
	a.granted = true

	watchCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.changes = hotplug.Watch(watchCtx, a.pollInterval, portNames, a.logger)
	return nil
}

func portNames() ([]string, error) {
	var names []string
	inputs, _ := inputDevices()
	for _, d := range inputs {
		names = append(names, "in:"+d.Name)
	}
	for _, d := range outputDevices() {
		names = append(names, "out:"+d.Name)
	}
	return names, nil
}

// inputDevices returns the readable input devices and their winmm device indexes.
func inputDevices() ([]contracts.DeviceInfo, []uint32) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	indexes := make([]uint32, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(uintptr(i), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if r1 != 0 {
			continue
		}
		devices = append(devices, contracts.DeviceInfo{
			Name:         windows.UTF16ToString(caps.szPname[:]),
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
			State:        contracts.Connected,
		})
		indexes = append(indexes, i)
	}
	return devices, indexes
}

func outputDevices() []contracts.DeviceInfo {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]contracts.DeviceInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(uintptr(i), uintptr(unsafe.Pointer(&caps)), unsafe.Sizeof(caps))
		if r1 != 0 {
			continue
		}
		devices = append(devices, contracts.DeviceInfo{
			Name:         windows.UTF16ToString(caps.szPname[:]),
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
			State:        contracts.Connected,
		})
	}
	return devices
}

func withIDs(devices []contracts.DeviceInfo) []contracts.DeviceInfo {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	for i, id := range portutil.UniqueIDs(names) {
		devices[i].ID = id
	}
	return devices
}

// Inputs lists the MIDI input devices.
func (a *Access) Inputs() ([]contracts.InputPort, error) {
	devices, indexes := inputDevices()
	devices = withIDs(devices)
	ports := make([]contracts.InputPort, len(devices))
	for i, d := range devices {
		ports[i] = &inputPort{index: indexes[i], info: d, logger: a.logger}
	}
	return ports, nil
}

// Outputs lists the MIDI output devices.
func (a *Access) Outputs() ([]contracts.DeviceInfo, error) {
	return withIDs(outputDevices()), nil
}

// Changes signals device changes once access was granted.
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

// inputPort is one winmm input device.
type inputPort struct {
	index  uint32
	info   contracts.DeviceInfo
	logger contracts.Logger

	mu       sync.Mutex
	handle   HMIDIIN
	instance uintptr
	handler  atomic.Value // contracts.FrameHandler
}

func (p *inputPort) Info() contracts.DeviceInfo {
	return p.info
}

// Listen opens the device on first use; later calls only swap the handler.
func (p *inputPort) Listen(handler contracts.FrameHandler) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handler.Store(handler)
	if p.handle == 0 {
		if err := p.open(); err != nil {
			return nil, err
		}
	}

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.handler.Store(contracts.FrameHandler(nil))
		if p.handle != 0 {
			if err := p.close(); err != nil {
				p.logger.Warn("Failed to close MIDI input", p.logger.Field().String("device", p.info.ID), p.logger.Field().Error("error", err))
			}
		}
	}, nil
}

func (p *inputPort) open() error {
	p.instance = nextInstance.Add(1)
	openPorts.Store(p.instance, p)

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&p.handle)),
		uintptr(p.index),
		midiInCallbackPtr,
		p.instance,
		uintptr(CALLBACK_FUNCTION),
	)
	if r1 != 0 {
		openPorts.Delete(p.instance)
		p.handle = 0
		return fmt.Errorf("failed to open MIDI device %d: %v", p.index, err)
	}

	r1, _, err = procMidiInStart.Call(uintptr(p.handle))
	if r1 != 0 {
		p.close()
		return fmt.Errorf("failed to start MIDI capture: %v", err)
	}
	p.logger.Info("MIDI device connected", p.logger.Field().String("device", p.info.ID))
	return nil
}

func (p *inputPort) close() error {
	defer func() {
		openPorts.Delete(p.instance)
		p.handle = 0
	}()

	procMidiInStop.Call(uintptr(p.handle))
	procMidiInReset.Call(uintptr(p.handle))
	if r1, _, err := procMidiInClose.Call(uintptr(p.handle)); r1 != 0 {
		return err
	}
	return nil
}

// midiInCallback processes incoming MIDI messages
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	v, ok := openPorts.Load(dwInstance)
	if !ok {
		return 0
	}
	p := v.(*inputPort)

	switch wMsg {
	case MIM_DATA, MIM_MOREDATA:
		handler, _ := p.handler.Load().(contracts.FrameHandler)
		if handler == nil {
			return 0
		}
		handler(contracts.RawFrame{
			Data: []byte{
				byte(dwParam1 & 0xFF),
				byte((dwParam1 >> 8) & 0xFF),
				byte((dwParam1 >> 16) & 0xFF),
			},
			Timestamp: portutil.Now(),
		})
	case MIM_ERROR, MIM_LONGERROR:
		p.logger.Warn("MIDI driver reported an invalid message", p.logger.Field().String("device", p.info.ID))
	case MIM_OPEN, MIM_CLOSE:
		p.logger.Debug("MIDI device state", p.logger.Field().String("device", p.info.ID), p.logger.Field().Int("msg", int(wMsg)))
	}
	return 0
}
