// Package loopback is an in-memory broadcast network connecting participants of one process.
package loopback

import "sync"

// CopiesFunc decides how many copies of a message reach one receiver: 0 drops it, 2 duplicates it.
type CopiesFunc func(from, to, topic string) int

// Network delivers every message synchronously to all endpoints except the sender.
type Network struct {
	mu        sync.RWMutex
	endpoints []*Endpoint
	copies    CopiesFunc
}

// NewNetwork creates an empty network with lossless delivery.
func NewNetwork() *Network {
	return &Network{}
}

// SetCopies installs a fault injector. nil restores lossless delivery.
func (n *Network) SetCopies(f CopiesFunc) {
	n.mu.Lock()
	n.copies = f
	n.mu.Unlock()
}

// Join adds a participant named name.
func (n *Network) Join(name string) *Endpoint {
	e := &Endpoint{network: n, name: name, handlers: make(map[string][]func([]byte))}
	n.mu.Lock()
	n.endpoints = append(n.endpoints, e)
	n.mu.Unlock()
	return e
}

func (n *Network) leave(e *Endpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, other := range n.endpoints {
		if other == e {
			n.endpoints = append(n.endpoints[:i:i], n.endpoints[i+1:]...)
			return
		}
	}
}

func (n *Network) broadcast(from *Endpoint, topic string, payload []byte) {
	n.mu.RLock()
	endpoints := append([]*Endpoint(nil), n.endpoints...)
	copies := n.copies
	n.mu.RUnlock()

	for _, e := range endpoints {
		if e == from {
			continue
		}
		count := 1
		if copies != nil {
			count = copies(from.name, e.name, topic)
		}
		for i := 0; i < count; i++ {
			e.deliver(topic, append([]byte(nil), payload...))
		}
	}
}

// Endpoint is one participant's contracts.BroadcastChannel.
type Endpoint struct {
	network *Network
	name    string

	mu       sync.RWMutex
	handlers map[string][]func([]byte)
	sent     int
}

// Name returns the participant name.
func (e *Endpoint) Name() string {
	return e.name
}

// Send implements contracts.BroadcastChannel.
func (e *Endpoint) Send(topic string, payload []byte) {
	e.mu.Lock()
	e.sent++
	e.mu.Unlock()
	e.network.broadcast(e, topic, payload)
}

// OnReceive implements contracts.BroadcastChannel.
func (e *Endpoint) OnReceive(topic string, handler func(payload []byte)) {
	e.mu.Lock()
	e.handlers[topic] = append(e.handlers[topic], handler)
	e.mu.Unlock()
}

// Sent reports how many messages this endpoint originated.
func (e *Endpoint) Sent() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sent
}

// Leave disconnects the endpoint from the network.
func (e *Endpoint) Leave() {
	e.network.leave(e)
}

func (e *Endpoint) deliver(topic string, payload []byte) {
	e.mu.RLock()
	handlers := e.handlers[topic]
	e.mu.RUnlock()
	for _, h := range handlers {
		h(payload)
	}
}
