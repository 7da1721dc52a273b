// Package wsrelay carries sync topics between participants over WebSocket: a Relay fans every
// envelope out to the other connected peers, and a Peer is the participant side of that
// connection implementing contracts.BroadcastChannel.
package wsrelay

import "time"

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
	maxMessageSize     = 64 << 10
	sendBufferSize     = 64
)

// Envelope is the wire frame exchanged with the relay.
type Envelope struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
}
