// Package termview draws the shared key proxy as a keyboard strip in the terminal.
package termview

import (
	"fmt"
	"math"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leandrodaf/keysync/sdk/contracts"
)

const (
	keysShown = 25
	meterRows = 4
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	styleWhite = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	styleBlack = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	styleActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	styleFooter = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PositionMsg carries a new key proxy position.
type PositionMsg struct{ X, Y float64 }

// StatusMsg carries the participant's role.
type StatusMsg struct {
	Leader bool
	Device string
}

// Model is the bubbletea model of the key view.
type Model struct {
	cfg    contracts.AnimationConfig
	x, y   float64
	status StatusMsg
}

// New creates a view showing the key at rest on the reference note.
func New(cfg contracts.AnimationConfig) Model {
	return Model{cfg: cfg, x: cfg.BasePosition, y: cfg.BaseHeight}
}

// Init starts the view without any command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update applies position and status messages and quits on q, esc or ctrl+c.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PositionMsg:
		m.x, m.y = msg.X, msg.Y
	case StatusMsg:
		m.status = msg
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

// Note returns the note under the key proxy.
func (m Model) Note() int {
	if m.cfg.KeySpacing == 0 {
		return m.cfg.ReferenceNote
	}
	return m.cfg.ReferenceNote + int(math.Round((m.x-m.cfg.BasePosition)/m.cfg.KeySpacing))
}

// Depth returns how far the key is pressed, from 0 at rest to 1 at full amplitude.
func (m Model) Depth() float64 {
	if m.cfg.KeyHeight == 0 {
		return 0
	}
	d := (m.y - m.cfg.BaseHeight) / m.cfg.KeyHeight
	return math.Max(0, math.Min(1, d))
}

// View renders the note name, the role, a lift meter and the keyboard strip.
func (m Model) View() string {
	var b strings.Builder

	role := "follower"
	if m.status.Leader {
		role = "leader (" + m.status.Device + ")"
	}
	note := m.Note()
	b.WriteString(styleTitle.Render(fmt.Sprintf("%s%d", noteName(note), note/12-1)) + "  " + styleFooter.Render(role) + "\n\n")

	first := note - keysShown/2
	filled := int(math.Round(m.Depth() * meterRows))
	for row := meterRows; row > 0; row-- {
		line := strings.Repeat(" ", (note-first)*2)
		if filled >= row {
			line += styleActive.Render("█")
		} else {
			line += " "
		}
		b.WriteString(line + "\n")
	}

	for n := first; n < first+keysShown; n++ {
		switch {
		case n == note:
			b.WriteString(styleActive.Render("▲ "))
		case isBlack(n):
			b.WriteString(styleBlack.Render("▌ "))
		default:
			b.WriteString(styleWhite.Render("█ "))
		}
	}
	b.WriteString("\n\n" + styleFooter.Render("q to quit"))

	return stylePanel.Render(b.String())
}

func noteName(n int) string {
	return noteNames[((n%12)+12)%12]
}

func isBlack(n int) bool {
	return strings.HasSuffix(noteName(n), "#")
}

// Proxy forwards key positions to a running bubbletea program. SetPosition only records the
// latest position; a separate goroutine hands it to the program, so a busy or not yet started
// program never stalls the caller.
type Proxy struct {
	send func(tea.Msg)
	wake chan struct{}
	done chan struct{}
	stop sync.Once

	mu         sync.Mutex
	pending    PositionMsg
	positioned bool
}

// NewProxy creates a proxy posting to p. Call Stop once p has exited.
func NewProxy(p *tea.Program) *Proxy {
	return newProxy(p.Send)
}

func newProxy(send func(tea.Msg)) *Proxy {
	p := &Proxy{
		send: send,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go p.pump()
	return p
}

// SetPosition records the position when it changed since the last call. It never blocks.
func (p *Proxy) SetPosition(x, y float64) {
	msg := PositionMsg{X: x, Y: y}

	p.mu.Lock()
	if p.positioned && p.pending == msg {
		p.mu.Unlock()
		return
	}
	p.pending, p.positioned = msg, true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Stop ends the forwarding goroutine.
func (p *Proxy) Stop() {
	p.stop.Do(func() { close(p.done) })
}

func (p *Proxy) pump() {
	var last PositionMsg
	sent := false
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}

		p.mu.Lock()
		msg := p.pending
		p.mu.Unlock()

		if sent && msg == last {
			continue
		}
		p.send(msg)
		last, sent = msg, true
	}
}
