// Package animation drives the vertical dip and horizontal placement of the shared key proxy.
package animation

import (
	"math"
	"time"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// State is the per-participant animation bookkeeping.
type State struct {
	CurrentNote int
	IsPressed   bool
	PressTime   float64 // seconds since the last press
}

// Animator converts press/release transitions into a position written to the proxy every tick.
// It does not know whether a transition came from local hardware or from a peer.
type Animator struct {
	cfg   contracts.AnimationConfig
	proxy contracts.Proxy
	state State
	x, y  float64
}

// New creates an Animator at rest on the reference note. A nil proxy is allowed.
func New(cfg contracts.AnimationConfig, proxy contracts.Proxy) *Animator {
	a := &Animator{
		cfg:   cfg,
		proxy: proxy,
		state: State{CurrentNote: cfg.ReferenceNote},
		y:     cfg.BaseHeight,
	}
	a.x = a.positionOf(cfg.ReferenceNote)
	return a
}

// Apply records a press or release of msg.Note. Every press restarts the dip, including
// repeated presses of a key that is already down.
func (a *Animator) Apply(msg contracts.SyncMessage) {
	a.state.CurrentNote = msg.Note
	a.x = a.positionOf(msg.Note)

	if msg.Pressed {
		a.state.IsPressed = true
		a.state.PressTime = 0
		return
	}
	a.state.IsPressed = false
}

// Tick advances the animation by delta and writes the resulting position to the proxy.
// A stalled caller simply resumes from the stored press time.
func (a *Animator) Tick(delta time.Duration) {
	dt := delta.Seconds()
	duration := a.cfg.PressDuration.Seconds()
	base := a.cfg.BaseHeight

	switch {
	case a.state.IsPressed:
		a.state.PressTime += dt
		if a.state.PressTime < duration {
			progress := a.state.PressTime / duration
			a.y = base + a.cfg.KeyHeight*math.Sin(math.Pi*progress)
		} else {
			a.y = base
		}
	case a.y > base:
		a.state.PressTime += dt
		progress := a.state.PressTime / duration
		a.y = base + math.Max(0, a.cfg.KeyHeight*math.Sin(math.Pi*(1-progress)))
		if progress >= 1 {
			a.y = base
		}
	}

	if a.proxy != nil {
		a.proxy.SetPosition(a.x, a.y)
	}
}

// State returns a copy of the current bookkeeping.
func (a *Animator) State() State {
	return a.state
}

// Position returns the last computed horizontal position and vertical offset.
func (a *Animator) Position() (x, y float64) {
	return a.x, a.y
}

// Idle reports whether the key is released and resting at the base height.
func (a *Animator) Idle() bool {
	return !a.state.IsPressed && a.y <= a.cfg.BaseHeight
}

func (a *Animator) positionOf(note int) float64 {
	return a.cfg.BasePosition + float64(note-a.cfg.ReferenceNote)*a.cfg.KeySpacing
}
