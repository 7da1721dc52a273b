package cli

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leandrodaf/keysync/internal/render/termview"
	"github.com/leandrodaf/keysync/sdk/contracts"
	"github.com/leandrodaf/keysync/sdk/keysync"
)

const statusInterval = 250 * time.Millisecond

// logProxy renders the key proxy as debug log lines when no terminal view is attached.
type logProxy struct {
	log  contracts.Logger
	x, y float64
}

func (p *logProxy) SetPosition(x, y float64) {
	if x == p.x && y == p.y {
		return
	}
	p.x, p.y = x, y
	p.log.Debug("Key position", p.log.Field().Float64("x", x), p.log.Field().Float64("y", y))
}

// view is where a participant's key proxy is drawn.
type view struct {
	program *tea.Program
	proxy   contracts.Proxy
	stop    func()
}

func newView(tui bool, anim contracts.AnimationConfig, log contracts.Logger) *view {
	if !tui {
		return &view{proxy: &logProxy{log: log}}
	}
	program := tea.NewProgram(termview.New(anim), tea.WithAltScreen())
	proxy := termview.NewProxy(program)
	return &view{program: program, proxy: proxy, stop: proxy.Stop}
}

// run drives the participant until ctx ends or the terminal view quits.
func (v *view) run(ctx context.Context, p *keysync.Participant) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	if v.program == nil {
		return ignoreCancel(<-errCh)
	}

	go reportStatus(ctx, p, v.program)
	go func() {
		<-ctx.Done()
		v.program.Quit()
	}()
	_, uiErr := v.program.Run()
	cancel()
	v.stop()
	return errors.Join(uiErr, ignoreCancel(<-errCh))
}

func reportStatus(ctx context.Context, p *keysync.Participant, program *tea.Program) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	var last termview.StatusMsg
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := termview.StatusMsg{Leader: p.IsLeader(), Device: p.BoundDevice()}
			if status != last {
				last = status
				program.Send(status)
			}
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
