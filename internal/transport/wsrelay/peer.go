package wsrelay

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leandrodaf/keysync/sdk/contracts"
)

// Peer is a participant's connection to a Relay. It reconnects until its context ends; messages
// sent while disconnected are dropped.
type Peer struct {
	url    string
	logger contracts.Logger
	dialer *websocket.Dialer

	mu       sync.Mutex
	out      chan []byte
	handlers map[string][]func(payload []byte)
}

// NewPeer creates a peer for the relay at url, e.g. ws://host:8080/ws.
func NewPeer(url string, logger contracts.Logger) *Peer {
	return &Peer{
		url:      url,
		logger:   logger,
		dialer:   websocket.DefaultDialer,
		handlers: make(map[string][]func([]byte)),
	}
}

// Connected reports whether the peer currently holds a relay connection.
func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out != nil
}

// Send queues payload for topic. It never blocks.
func (p *Peer) Send(topic string, payload []byte) {
	data, err := json.Marshal(Envelope{Topic: topic, Payload: payload})
	if err != nil {
		p.logger.Error("Failed to encode envelope", p.logger.Field().Error("error", err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		p.logger.Debug("Relay not connected; message dropped", p.logger.Field().String("topic", topic))
		return
	}
	select {
	case p.out <- data:
	default:
		p.logger.Warn("Relay send buffer full; message dropped", p.logger.Field().String("topic", topic))
	}
}

// OnReceive registers handler for payloads arriving on topic. Handlers run on the read goroutine.
func (p *Peer) OnReceive(topic string, handler func(payload []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[topic] = append(p.handlers[topic], handler)
}

// Run connects to the relay and keeps reconnecting with exponential backoff until ctx is done.
func (p *Peer) Run(ctx context.Context) error {
	delay := reconnectBaseDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
		if err != nil {
			p.logger.Warn("Relay dial failed",
				p.logger.Field().String("url", p.url),
				p.logger.Field().Duration("retry_in", delay),
				p.logger.Field().Error("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, reconnectMaxDelay)
			continue
		}

		delay = reconnectBaseDelay
		p.logger.Info("Connected to relay", p.logger.Field().String("url", p.url))
		err = p.serve(ctx, conn)
		if ctx.Err() == nil {
			p.logger.Warn("Relay connection lost", p.logger.Field().Error("error", err))
		}
	}
}

func (p *Peer) serve(ctx context.Context, conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, sendBufferSize)

	p.mu.Lock()
	p.out = out
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.out = nil
		p.mu.Unlock()
		cancel()
		conn.Close()
	}()

	go p.writePump(connCtx, conn, out)
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			p.logger.Warn("Dropping malformed envelope", p.logger.Field().Error("error", err))
			continue
		}
		p.deliver(env)
	}
}

func (p *Peer) deliver(env Envelope) {
	p.mu.Lock()
	handlers := slices.Clone(p.handlers[env.Topic])
	p.mu.Unlock()

	for _, h := range handlers {
		h(env.Payload)
	}
}

// writePump owns every write on conn; it exits when the connection context ends or a write fails.
func (p *Peer) writePump(ctx context.Context, conn *websocket.Conn, out <-chan []byte) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
