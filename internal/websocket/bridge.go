package websocket

import (
	"context"
	"encoding/json"

	goredis "amoura-chat/internal/redis"
	"amoura-chat/pkg/logger"
)

// RedisBridge forwards envelopes arriving over Redis pub/sub to locally
// connected clients. The envelope's Origin excludes the client that
// triggered the event so it never echoes back to its own socket.
type RedisBridge struct {
	subscriber *goredis.Subscriber
	hub        *Hub
	log        *logger.Logger
}

func NewRedisBridge(subscriber *goredis.Subscriber, hub *Hub, log *logger.Logger) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub, log: log}
}

// Run starts the subscriber and pumps messages into the hub until ctx is
// cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	if err := b.subscriber.Start(ctx); err != nil {
		return err
	}
	for msg := range b.subscriber.Messages() {
		frame, err := json.Marshal(outboundFrame{
			Event:   msg.Envelope.Event,
			Payload: msg.Envelope.Payload,
		})
		if err != nil {
			b.log.Errorf("failed to encode outbound frame: %v", err)
			continue
		}
		b.hub.Broadcast(msg.Room, frame, msg.Envelope.Origin)
	}
	return nil
}

type outboundFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}
