// Package config loads the keysync YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/leandrodaf/keysync/sdk/contracts"
	"gopkg.in/yaml.v3"
)

// Config is the keysync configuration file.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Relay     RelayConfig     `yaml:"relay"`
	Sync      SyncConfig      `yaml:"sync"`
	Loop      LoopConfig      `yaml:"loop"`
	Devices   DevicesConfig   `yaml:"devices"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	Animation AnimationConfig `yaml:"animation"`
}

// RelayConfig holds the relay URL peers dial and the address the relay listens on.
type RelayConfig struct {
	URL    string `yaml:"url"`
	Listen string `yaml:"listen"`
}

// SyncConfig names the topic key state is replicated on.
type SyncConfig struct {
	Topic string `yaml:"topic"`
}

// LoopConfig sizes the participant event loop.
type LoopConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	QueueSize    int           `yaml:"queue_size"`
}

// DevicesConfig controls MIDI device discovery.
type DevicesConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	ClientName   string        `yaml:"client_name"`
}

// DecoderConfig lists vendor status bytes, channel included, decoded like Note On and Note Off.
type DecoderConfig struct {
	NoteOnVariants  []int `yaml:"note_on_variants"`
	NoteOffVariants []int `yaml:"note_off_variants"`
}

// AnimationConfig holds the key proxy geometry and timing.
type AnimationConfig struct {
	BaseHeight    float64       `yaml:"base_height"`
	KeyHeight     float64       `yaml:"key_height"`
	PressDuration time.Duration `yaml:"press_duration"`
	BasePosition  float64       `yaml:"base_position"`
	KeySpacing    float64       `yaml:"key_spacing"`
	ReferenceNote int           `yaml:"reference_note"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	anim := contracts.DefaultAnimationConfig()
	variants := contracts.DefaultVariantTable()
	return &Config{
		LogLevel: "info",
		Relay: RelayConfig{
			URL:    "ws://127.0.0.1:8080/ws",
			Listen: ":8080",
		},
		Sync: SyncConfig{Topic: contracts.DefaultSyncTopic},
		Loop: LoopConfig{
			TickInterval: 16 * time.Millisecond,
			QueueSize:    1024,
		},
		Devices: DevicesConfig{
			PollInterval: time.Second,
			ClientName:   "keysync",
		},
		Decoder: DecoderConfig{
			NoteOnVariants:  toInts(variants.NoteOn),
			NoteOffVariants: toInts(variants.NoteOff),
		},
		Animation: AnimationConfig{
			BaseHeight:    anim.BaseHeight,
			KeyHeight:     anim.KeyHeight,
			PressDuration: anim.PressDuration,
			BasePosition:  anim.BasePosition,
			KeySpacing:    anim.KeySpacing,
			ReferenceNote: anim.ReferenceNote,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid value.
func (c *Config) Validate() error {
	var errs []error
	if _, err := contracts.ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Sync.Topic == "" {
		errs = append(errs, errors.New("sync.topic must not be empty"))
	}
	if c.Loop.TickInterval <= 0 {
		errs = append(errs, errors.New("loop.tick_interval must be positive"))
	}
	if c.Loop.QueueSize <= 0 {
		errs = append(errs, errors.New("loop.queue_size must be positive"))
	}
	if c.Devices.PollInterval <= 0 {
		errs = append(errs, errors.New("devices.poll_interval must be positive"))
	}
	if c.Animation.PressDuration <= 0 {
		errs = append(errs, errors.New("animation.press_duration must be positive"))
	}
	if c.Animation.ReferenceNote < 0 || c.Animation.ReferenceNote > 127 {
		errs = append(errs, fmt.Errorf("animation.reference_note %d out of range 0-127", c.Animation.ReferenceNote))
	}
	for _, v := range append(append([]int(nil), c.Decoder.NoteOnVariants...), c.Decoder.NoteOffVariants...) {
		if v < 0x80 || v > 0xFF {
			errs = append(errs, fmt.Errorf("decoder variant 0x%X is not a status byte", v))
		}
	}
	return errors.Join(errs...)
}

// Options converts the configuration to participant options.
func (c *Config) Options() ([]contracts.Option, error) {
	level, err := contracts.ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return []contracts.Option{
		contracts.WithLogLevel(level),
		contracts.WithSyncTopic(c.Sync.Topic),
		contracts.WithTickInterval(c.Loop.TickInterval),
		contracts.WithQueueSize(c.Loop.QueueSize),
		contracts.WithPollInterval(c.Devices.PollInterval),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{ClientName: c.Devices.ClientName}),
		contracts.WithVariantTable(contracts.VariantTable{
			NoteOn:  toBytes(c.Decoder.NoteOnVariants),
			NoteOff: toBytes(c.Decoder.NoteOffVariants),
		}),
		contracts.WithAnimation(contracts.AnimationConfig{
			BaseHeight:    c.Animation.BaseHeight,
			KeyHeight:     c.Animation.KeyHeight,
			PressDuration: c.Animation.PressDuration,
			BasePosition:  c.Animation.BasePosition,
			KeySpacing:    c.Animation.KeySpacing,
			ReferenceNote: c.Animation.ReferenceNote,
		}),
	}, nil
}

func toInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func toBytes(v []int) []byte {
	out := make([]byte, len(v))
	for i, n := range v {
		out[i] = byte(n)
	}
	return out
}
