//go:build !windows
// +build !windows

package midiwindows

import (
	"context"
	"fmt"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

type dummyAccess struct {
	logger contracts.Logger
}

// NewAccess initializes a dummy backend for non-Windows systems.
func NewAccess(options *contracts.ClientOptions) (contracts.Access, error) {
	options.Logger.Debug("Using dummy winmm access for non-Windows system")
	return &dummyAccess{logger: options.Logger}, nil
}

// RequestAccess always fails: winmm only exists on Windows.
func (m *dummyAccess) RequestAccess(context.Context) error {
	return fmt.Errorf("%w: winmm is only available on Windows", contracts.ErrCapabilityUnsupported)
}

// Inputs logs a warning and returns no ports.
func (m *dummyAccess) Inputs() ([]contracts.InputPort, error) {
	m.logger.Warn("Inputs called on dummy winmm access")
	return nil, nil
}

// Outputs returns no ports.
func (m *dummyAccess) Outputs() ([]contracts.DeviceInfo, error) {
	return nil, nil
}

// Changes never fires.
func (m *dummyAccess) Changes() <-chan struct{} {
	return nil
}

// Close does nothing.
func (m *dummyAccess) Close() error {
	return nil
}
