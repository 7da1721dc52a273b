package contracts

// DefaultSyncTopic is the topic key state is replicated on.
const DefaultSyncTopic = "key_position"

// BroadcastChannel delivers messages to every other participant of a session.
// Delivery is fire-and-forget: no acknowledgment, ordering or delivery guarantee.
type BroadcastChannel interface {
	// Send delivers payload to all other participants subscribed to topic.
	Send(topic string, payload []byte)
	// OnReceive registers handler for payloads arriving on topic.
	OnReceive(topic string, handler func(payload []byte))
}

// Proxy is the render binding of the visual key proxy.
type Proxy interface {
	// SetPosition writes the horizontal position and the vertical offset of the key.
	SetPosition(x, y float64)
}
