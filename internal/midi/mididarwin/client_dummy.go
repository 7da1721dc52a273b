//go:build !darwin
// +build !darwin

package mididarwin

import (
	"context"
	"fmt"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// DummyAccess stands in for CoreMIDI on systems other than macOS.
type DummyAccess struct {
	logger contracts.Logger
}

// NewAccess returns a backend whose RequestAccess always fails.
func NewAccess(options *contracts.ClientOptions) (contracts.Access, error) {
	options.Logger.Debug("Using dummy CoreMIDI access for non-macOS system")
	return &DummyAccess{logger: options.Logger}, nil
}

func (m *DummyAccess) RequestAccess(context.Context) error {
	return fmt.Errorf("%w: CoreMIDI is only available on macOS", contracts.ErrCapabilityUnsupported)
}

func (m *DummyAccess) Inputs() ([]contracts.InputPort, error) {
	m.logger.Warn("Inputs called on dummy CoreMIDI access")
	return nil, nil
}

func (m *DummyAccess) Outputs() ([]contracts.DeviceInfo, error) {
	return nil, nil
}

func (m *DummyAccess) Changes() <-chan struct{} {
	return nil
}

func (m *DummyAccess) Close() error {
	return nil
}
