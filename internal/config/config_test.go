package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keysync.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.Topic != "key_position" {
		t.Errorf("topic = %q", cfg.Sync.Topic)
	}
	if cfg.Animation.PressDuration != 150*time.Millisecond || cfg.Animation.ReferenceNote != 48 {
		t.Errorf("animation = %+v", cfg.Animation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
relay:
  url: ws://relay.local:9000/ws
sync:
  topic: stage
animation:
  press_duration: 200ms
  key_height: 0.8
decoder:
  note_on_variants: [0x97, 0x98]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.Relay.URL != "ws://relay.local:9000/ws" || cfg.Sync.Topic != "stage" {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if cfg.Relay.Listen != ":8080" {
		t.Errorf("unset relay.listen = %q, want default", cfg.Relay.Listen)
	}
	if cfg.Animation.PressDuration != 200*time.Millisecond || cfg.Animation.KeyHeight != 0.8 {
		t.Errorf("animation = %+v", cfg.Animation)
	}
	if cfg.Animation.BaseHeight != 1.1 {
		t.Errorf("unset base_height = %v, want default", cfg.Animation.BaseHeight)
	}
	if len(cfg.Decoder.NoteOnVariants) != 2 || cfg.Decoder.NoteOnVariants[1] != 0x98 {
		t.Errorf("note_on_variants = %v", cfg.Decoder.NoteOnVariants)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"log level", "log_level: loud", "log level"},
		{"empty topic", "sync:\n  topic: \"\"", "sync.topic"},
		{"press duration", "animation:\n  press_duration: 0s", "press_duration"},
		{"variant", "decoder:\n  note_off_variants: [12]", "not a status byte"},
		{"reference note", "animation:\n  reference_note: 200", "reference_note"},
		{"queue", "loop:\n  queue_size: 0", "queue_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "sync: [")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	cfg.Decoder.NoteOffVariants = []int{0x87, 0x88}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	var got contracts.ClientOptions
	for _, opt := range opts {
		opt(&got)
	}

	if got.LogLevel != contracts.WarnLevel || got.SyncTopic != "key_position" || got.QueueSize != 1024 {
		t.Errorf("options = %+v", got)
	}
	if got.Variants == nil || string(got.Variants.NoteOff) != "\x87\x88" {
		t.Errorf("variants = %+v", got.Variants)
	}
	if got.Animation == nil || *got.Animation != contracts.DefaultAnimationConfig() {
		t.Errorf("animation = %+v", got.Animation)
	}
	if got.CoreMIDIConfig == nil || got.CoreMIDIConfig.ClientName != "keysync" {
		t.Errorf("client name = %+v", got.CoreMIDIConfig)
	}
}
