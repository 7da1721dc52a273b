package contracts

import "time"

// VariantTable lists vendor status bytes that carry the same meaning as the standard
// Note On and Note Off status bytes. Entries match the full status byte, channel included.
type VariantTable struct {
	NoteOn  []byte // Alternate status bytes treated as Note On.
	NoteOff []byte // Alternate status bytes treated as Note Off.
}

// DefaultVariantTable holds the status variants observed in the field.
func DefaultVariantTable() VariantTable {
	return VariantTable{
		NoteOn:  []byte{0x97},
		NoteOff: []byte{0x87},
	}
}

// AnimationConfig holds the geometry and timing of the key proxy animation.
type AnimationConfig struct {
	BaseHeight    float64       // Resting vertical offset.
	KeyHeight     float64       // Amplitude of the press dip.
	PressDuration time.Duration // Window over which press and release easing play.
	BasePosition  float64       // Horizontal position of ReferenceNote.
	KeySpacing    float64       // Horizontal distance between adjacent notes.
	ReferenceNote int           // Note rendered at BasePosition.
}

// DefaultAnimationConfig returns the geometry of the shared keyboard scene.
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		BaseHeight:    1.1,
		KeyHeight:     0.5,
		PressDuration: 150 * time.Millisecond,
		BasePosition:  -3,
		KeySpacing:    1,
		ReferenceNote: 48,
	}
}

// CoreMIDIConfig holds configuration for the platform MIDI client.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// ClientOptions defines the configuration options for a participant.
type ClientOptions struct {
	Logger         Logger           // Logger for logging events and errors.
	LogLevel       LogLevel         // Level of logging to use.
	Variants       *VariantTable    // Vendor status byte variants accepted by the decoder.
	Animation      *AnimationConfig // Key proxy animation settings.
	CoreMIDIConfig *CoreMIDIConfig  // Configuration specific to the platform MIDI client.
	SyncTopic      string           // Topic the key state is replicated on.
	PollInterval   time.Duration    // Interval between hot-plug scans.
	TickInterval   time.Duration    // Interval between animation ticks.
	QueueSize      int              // Capacity of the event loop queue.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithVariantTable replaces the decoder's vendor status byte variants.
func WithVariantTable(table VariantTable) Option {
	return func(opts *ClientOptions) {
		opts.Variants = &table
	}
}

// WithAnimation sets the key proxy animation settings.
func WithAnimation(cfg AnimationConfig) Option {
	return func(opts *ClientOptions) {
		opts.Animation = &cfg
	}
}

// WithCoreMIDIConfig sets the platform MIDI client configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// WithSyncTopic sets the topic the key state is replicated on.
func WithSyncTopic(topic string) Option {
	return func(opts *ClientOptions) {
		opts.SyncTopic = topic
	}
}

// WithPollInterval sets how often backends scan for hot-plugged devices.
func WithPollInterval(d time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.PollInterval = d
	}
}

// WithTickInterval sets the animation tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(opts *ClientOptions) {
		opts.TickInterval = d
	}
}

// WithQueueSize sets the capacity of the event loop queue.
func WithQueueSize(n int) Option {
	return func(opts *ClientOptions) {
		opts.QueueSize = n
	}
}
