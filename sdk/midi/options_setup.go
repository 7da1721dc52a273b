package midi

import (
	"fmt"
	"time"

	"github.com/leandrodaf/keysync/internal/logger"
	"github.com/leandrodaf/keysync/sdk/contracts"
)

// Defaults applied by ApplyDefaultOptions.
const (
	DefaultClientName   = "keysync"
	DefaultPollInterval = time.Second
	DefaultTickInterval = 16 * time.Millisecond
	DefaultQueueSize    = 1024
)

// ApplyDefaultOptions sets default values for ClientOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized options with defaults applied.
//   - error: An error if an option holds an invalid value.
func ApplyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: DefaultClientName}
	}
	if options.Variants == nil {
		v := contracts.DefaultVariantTable()
		options.Variants = &v
	}
	if options.Animation == nil {
		a := contracts.DefaultAnimationConfig()
		options.Animation = &a
	}
	if options.SyncTopic == "" {
		options.SyncTopic = contracts.DefaultSyncTopic
	}
	if options.PollInterval == 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.TickInterval == 0 {
		options.TickInterval = DefaultTickInterval
	}
	if options.QueueSize == 0 {
		options.QueueSize = DefaultQueueSize
	}

	if options.PollInterval < 0 || options.TickInterval < 0 {
		return contracts.ClientOptions{}, fmt.Errorf("intervals must be positive: poll=%s tick=%s", options.PollInterval, options.TickInterval)
	}
	if options.QueueSize < 0 {
		return contracts.ClientOptions{}, fmt.Errorf("queue size must be positive: %d", options.QueueSize)
	}
	if options.Animation.PressDuration <= 0 {
		return contracts.ClientOptions{}, fmt.Errorf("press duration must be positive: %s", options.Animation.PressDuration)
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
