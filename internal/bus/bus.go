// Package bus is the in-process publish/subscribe event bus of a participant.
package bus

import (
	"fmt"
	"sync"

	"github.com/leandrodaf/keysync/sdk/contracts"
)

type subscription struct {
	id      uint64
	handler contracts.EventHandler
}

// Bus delivers events synchronously, in subscription order, on the publishing goroutine.
// A panicking subscriber is logged and skipped; the remaining subscribers still run.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	logger contracts.Logger
}

// New creates an empty bus.
func New(logger contracts.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for name. The returned function removes it and is idempotent.
func (b *Bus) Subscribe(name string, handler contracts.EventHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// Publish delivers payload to every current subscriber of name.
func (b *Bus) Publish(name string, payload any) {
	b.mu.RLock()
	subs := b.subs[name]
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(name, s, payload)
	}
}

func (b *Bus) deliver(name string, s subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event subscriber panicked",
				b.logger.Field().String("event", name),
				b.logger.Field().String("panic", fmt.Sprint(r)))
		}
	}()
	s.handler(payload)
}

// Subscribers reports how many handlers are registered for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
