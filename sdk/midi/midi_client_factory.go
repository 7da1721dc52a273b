package midi

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/keysync/internal/midi/mididarwin"
	"github.com/leandrodaf/keysync/internal/midi/midirtmidi"
	"github.com/leandrodaf/keysync/internal/midi/midiwindows"
	"github.com/leandrodaf/keysync/sdk/contracts"
)

// accessInitializers maps OS names to corresponding device access initializers.
var accessInitializers = map[string]func(*contracts.ClientOptions) (contracts.Access, error){
	"darwin":  mididarwin.NewAccess,  // macOS (Darwin) CoreMIDI backend.
	"windows": midiwindows.NewAccess, // Windows winmm backend.
	"linux":   midirtmidi.NewAccess,  // ALSA through rtmidi, requires -tags rtmidi.
}

// NewPlatformAccess selects the device access for the current operating system,
// returning contracts.ErrUnsupportedOS when none exists.
func NewPlatformAccess(opts *contracts.ClientOptions) (contracts.Access, error) {
	return newAccessFor(runtime.GOOS, opts)
}

func newAccessFor(goos string, opts *contracts.ClientOptions) (contracts.Access, error) {
	if initializer, exists := accessInitializers[goos]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", contracts.ErrUnsupportedOS, goos)
}
