package termview

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leandrodaf/keysync/sdk/contracts"
)

func TestNoteFollowsPosition(t *testing.T) {
	cfg := contracts.DefaultAnimationConfig()
	tests := []struct {
		name string
		x    float64
		want int
	}{
		{"reference", cfg.BasePosition, cfg.ReferenceNote},
		{"octave up", cfg.BasePosition + 12, cfg.ReferenceNote + 12},
		{"below reference", cfg.BasePosition - 5, cfg.ReferenceNote - 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := New(cfg).Update(PositionMsg{X: tt.x, Y: cfg.BaseHeight})
			if got := m.(Model).Note(); got != tt.want {
				t.Errorf("Note() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDepth(t *testing.T) {
	cfg := contracts.DefaultAnimationConfig()
	tests := []struct {
		name string
		y    float64
		want float64
	}{
		{"rest", cfg.BaseHeight, 0},
		{"full", cfg.BaseHeight + cfg.KeyHeight, 1},
		{"half", cfg.BaseHeight + cfg.KeyHeight/2, 0.5},
		{"below rest", cfg.BaseHeight - 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := New(cfg).Update(PositionMsg{X: cfg.BasePosition, Y: tt.y})
			if got := m.(Model).Depth(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Depth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewShowsNoteAndRole(t *testing.T) {
	cfg := contracts.DefaultAnimationConfig()
	var m tea.Model = New(cfg)
	m, _ = m.Update(PositionMsg{X: cfg.BasePosition + 12, Y: cfg.BaseHeight})
	m, _ = m.Update(StatusMsg{Leader: true, Device: "Keys"})

	view := m.View()
	if !strings.Contains(view, "C4") {
		t.Errorf("view does not name note 60:\n%s", view)
	}
	if !strings.Contains(view, "leader (Keys)") {
		t.Errorf("view does not show the role:\n%s", view)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		_, cmd := New(contracts.DefaultAnimationConfig()).Update(key)
		if cmd == nil {
			t.Errorf("%q did not quit", key.String())
			continue
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q returned a non-quit command", key.String())
		}
	}
}

func receivePosition(t *testing.T, got <-chan tea.Msg, want PositionMsg) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-got:
			if msg.(PositionMsg) == want {
				return
			}
		case <-timeout:
			t.Fatalf("position %+v never delivered", want)
		}
	}
}

func TestProxySkipsUnchangedPositions(t *testing.T) {
	got := make(chan tea.Msg, 16)
	p := newProxy(func(msg tea.Msg) { got <- msg })
	defer p.Stop()

	p.SetPosition(1, 2)
	receivePosition(t, got, PositionMsg{X: 1, Y: 2})
	p.SetPosition(1, 2)
	p.SetPosition(1, 2.5)
	receivePosition(t, got, PositionMsg{X: 1, Y: 2.5})

	select {
	case msg := <-got:
		t.Fatalf("unexpected extra message %+v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestProxyDoesNotBlockOnBusyProgram(t *testing.T) {
	release := make(chan struct{})
	got := make(chan tea.Msg, 16)
	p := newProxy(func(msg tea.Msg) {
		<-release
		got <- msg
	})
	defer p.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 50; i++ {
			p.SetPosition(float64(i), 1.1)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetPosition blocked while the program was not receiving")
	}

	close(release)
	receivePosition(t, got, PositionMsg{X: 50, Y: 1.1})
}
