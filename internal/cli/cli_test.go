package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leandrodaf/keysync/internal/logger"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/spf13/cobra"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("log-file", "", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestLoadConfigFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keysync.yaml")
	if err := os.WriteFile(path, []byte("log_level: error\nsync:\n  topic: stage\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(newTestCommand(t, "--config", path, "--log-level", "debug"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Sync.Topic != "stage" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestLoadConfigRejectsBadLevel(t *testing.T) {
	if _, err := loadConfig(newTestCommand(t, "--log-level", "chatty")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestFormatDevice(t *testing.T) {
	tests := []struct {
		name string
		in   contracts.DeviceInfo
		want string
	}{
		{
			name: "with manufacturer",
			in:   contracts.DeviceInfo{ID: "in-1", Name: "Keys", Manufacturer: "Acme", State: contracts.Connected},
			want: "Keys (Acme) - connected  [in-1]",
		},
		{
			name: "without manufacturer",
			in:   contracts.DeviceInfo{ID: "Pads", Name: "Pads", State: contracts.Connected},
			want: "Pads (unknown) - connected  [Pads]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDevice(tt.in); got != tt.want {
				t.Errorf("formatDevice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnimationOf(t *testing.T) {
	anim := contracts.DefaultAnimationConfig()
	anim.KeyHeight = 3
	got, ok := animationOf([]contracts.Option{contracts.WithAnimation(anim)})
	if !ok || got.KeyHeight != 3 {
		t.Fatalf("animationOf = %+v, %v", got, ok)
	}
	if got, ok := animationOf(nil); ok || got != contracts.DefaultAnimationConfig() {
		t.Fatalf("animationOf(nil) = %+v, %v", got, ok)
	}
}

func TestLogProxyOnlyLogsChanges(t *testing.T) {
	p := &logProxy{log: logger.NewNopLogger()}
	p.SetPosition(1, 2)
	p.SetPosition(1, 2)
	if p.x != 1 || p.y != 2 {
		t.Fatalf("position = (%v, %v)", p.x, p.y)
	}
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"relay", "join", "devices", "demo"} {
		if !strings.Contains(joined, want) {
			t.Errorf("command %q not registered (have %s)", want, joined)
		}
	}
}

func TestHelpRenders(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--help"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "keysync") {
		t.Fatalf("help output: %s", out.String())
	}
}
