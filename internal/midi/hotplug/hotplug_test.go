package hotplug

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/keysync/internal/logger"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type ports struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (p *ports) set(err error, names ...string) {
	p.mu.Lock()
	p.names, p.err = names, err
	p.mu.Unlock()
}

func (p *ports) list() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.names, p.err
}

func expectSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change signalled")
	}
}

func expectQuiet(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected change signal")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestWatchSignalsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &ports{names: []string{"Keys"}}
	changes := Watch(ctx, time.Millisecond, p.list, logger.NewNopLogger())

	expectQuiet(t, changes)

	p.set(nil, "Keys", "Pads")
	expectSignal(t, changes)

	// Reordering is not a change.
	p.set(nil, "Pads", "Keys")
	expectQuiet(t, changes)

	// Poll errors keep the previous snapshot.
	p.set(errors.New("driver busy"))
	expectQuiet(t, changes)

	p.set(nil, "Pads")
	expectSignal(t, changes)
}

func TestWatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &ports{}
	changes := Watch(ctx, time.Millisecond, p.list, logger.NewNopLogger())

	cancel()
	select {
	case _, ok := <-changes:
		if ok {
			t.Fatal("unexpected change signal")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatchLogsInitialPollFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zapcore.DebugLevel)
	p := &ports{err: errors.New("driver busy")}
	Watch(ctx, time.Hour, p.list, logger.NewFromCore(core))

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("Failed to poll MIDI ports").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial poll failure was not logged")
		}
		time.Sleep(time.Millisecond)
	}
	entry := logs.FilterMessage("Failed to poll MIDI ports").All()[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("level = %v, want warn", entry.Level)
	}
}
