//go:build !rtmidi
// +build !rtmidi

package midirtmidi

import (
	"context"
	"fmt"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

type dummyAccess struct {
	logger contracts.Logger
}

// NewAccess returns a backend that reports rtmidi as unavailable; build with -tags rtmidi to enable it.
func NewAccess(options *contracts.ClientOptions) (contracts.Access, error) {
	options.Logger.Debug("Using dummy rtmidi access, build with -tags rtmidi for ALSA support")
	return &dummyAccess{logger: options.Logger}, nil
}

func (m *dummyAccess) RequestAccess(context.Context) error {
	return fmt.Errorf("%w: build with -tags rtmidi", contracts.ErrCapabilityUnsupported)
}

func (m *dummyAccess) Inputs() ([]contracts.InputPort, error) {
	m.logger.Warn("Inputs called on dummy rtmidi access")
	return nil, nil
}

func (m *dummyAccess) Outputs() ([]contracts.DeviceInfo, error) {
	return nil, nil
}

func (m *dummyAccess) Changes() <-chan struct{} {
	return nil
}

func (m *dummyAccess) Close() error {
	return nil
}
