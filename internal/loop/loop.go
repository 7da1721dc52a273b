// Package loop runs every callback of a participant on a single goroutine.
package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

// Loop is a single-consumer task queue with a render tick.
type Loop struct {
	queue    chan func()
	logger   contracts.Logger
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a loop whose queue holds up to size pending tasks.
func New(size int, logger contracts.Logger) *Loop {
	if size <= 0 {
		size = 1
	}
	return &Loop{queue: make(chan func(), size), logger: logger, stopped: make(chan struct{})}
}

// Post enqueues fn without blocking. When the queue is full the task is dropped.
func (l *Loop) Post(fn func()) bool {
	select {
	case l.queue <- fn:
		return true
	default:
		l.logger.Warn("Event loop queue is full; task discarded", l.logger.Field().Int("capacity", cap(l.queue)))
		return false
	}
}

// Deliver enqueues fn, waiting for room when the queue is full. It returns false only once Run
// has returned and the queue is still full.
func (l *Loop) Deliver(fn func()) bool {
	select {
	case l.queue <- fn:
		return true
	default:
	}

	l.logger.Debug("Event loop queue is full; waiting", l.logger.Field().Int("capacity", cap(l.queue)))
	select {
	case l.queue <- fn:
		return true
	case <-l.stopped:
		l.logger.Warn("Event loop stopped; task discarded")
		return false
	}
}

// Dispatch is Deliver without the result, usable as a component dispatcher.
func (l *Loop) Dispatch(fn func()) {
	l.Deliver(fn)
}

// Run executes queued tasks in order and calls onTick with the wall-clock time elapsed since the
// previous tick. It returns ctx.Err() once ctx is done.
func (l *Loop) Run(ctx context.Context, interval time.Duration, onTick func(delta time.Duration)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer l.stopOnce.Do(func() { close(l.stopped) })

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.run(fn)
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if onTick != nil {
				l.run(func() { onTick(delta) })
			}
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Event loop task panicked", l.logger.Field().String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}
