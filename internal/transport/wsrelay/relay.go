package wsrelay

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/leandrodaf/keysync/sdk/contracts"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Relay forwards every envelope it receives to all other connected peers.
type Relay struct {
	logger   contracts.Logger
	upgrader websocket.Upgrader
	engine   *gin.Engine

	mu      sync.RWMutex
	clients map[*client]bool
}

// NewRelay creates a relay serving GET /ws and GET /healthz.
func NewRelay(logger contracts.Logger) *Relay {
	gin.SetMode(gin.ReleaseMode)

	r := &Relay{
		logger:  logger,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/ws", r.serveWS)
	engine.GET("/healthz", r.health)
	r.engine = engine
	return r
}

// Handler returns the relay's HTTP handler.
func (r *Relay) Handler() http.Handler {
	return r.engine
}

// ClientCount returns the number of connected peers.
func (r *Relay) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Relay) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "peers": r.ClientCount()})
}

func (r *Relay) serveWS(c *gin.Context) {
	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Warn("WebSocket upgrade failed", r.logger.Field().Error("error", err))
		return
	}

	cl := r.addClient(conn)
	defer r.removeClient(cl)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.logger.Warn("Peer connection lost", r.logger.Field().Error("error", err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Topic == "" {
			r.logger.Warn("Dropping malformed envelope", r.logger.Field().Int("bytes", len(data)))
			continue
		}
		r.broadcast(cl, data)
	}
}

func (r *Relay) addClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	r.mu.Lock()
	r.clients[c] = true
	count := len(r.clients)
	r.mu.Unlock()

	r.logger.Info("Peer connected",
		r.logger.Field().String("remote", conn.RemoteAddr().String()),
		r.logger.Field().Int("peers", count))
	return c
}

func (r *Relay) removeClient(c *client) {
	r.mu.Lock()
	_, ok := r.clients[c]
	if ok {
		delete(r.clients, c)
		close(c.send)
	}
	count := len(r.clients)
	r.mu.Unlock()

	if ok {
		r.logger.Info("Peer disconnected", r.logger.Field().Int("peers", count))
	}
}

func (r *Relay) broadcast(from *client, data []byte) {
	var slow []*client

	r.mu.RLock()
	for c := range r.clients {
		if c == from {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range slow {
		r.logger.Warn("Peer too slow, disconnecting")
		r.removeClient(c)
	}
}
