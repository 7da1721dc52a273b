package midi

import (
	"github.com/leandrodaf/keysync/sdk/contracts"
)

// NewAccess creates the MIDI device access for the current platform.
// It applies default options before selecting the backend.
//
// opts ...contracts.Option: A variadic list of option functions to customize the backend configuration.
//
// Returns:
//   - contracts.Access: The platform device access; call RequestAccess before enumerating.
//   - error: An error, if any occurred during the creation of the backend.
func NewAccess(opts ...contracts.Option) (contracts.Access, error) {
	options, err := ApplyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	return NewPlatformAccess(&options)
}
