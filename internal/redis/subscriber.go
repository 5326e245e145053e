package redis

import (
	"context"
	"encoding/json"

	"amoura-chat/internal/events"
	"amoura-chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RoomMessage is a decoded pub/sub message paired with the room it
// arrived on.
type RoomMessage struct {
	Room     string
	Envelope events.Envelope
}

// Subscriber pattern-subscribes to the room channels and decodes incoming
// envelopes onto a channel the websocket bridge drains.
type Subscriber struct {
	client *redis.Client
	log    *logger.Logger
	out    chan RoomMessage
	pubsub *redis.PubSub
}

func NewSubscriber(client *redis.Client, log *logger.Logger) *Subscriber {
	return &Subscriber{
		client: client,
		log:    log,
		out:    make(chan RoomMessage, 256),
	}
}

// Messages returns the stream of decoded room messages. Closed when the
// subscriber stops.
func (s *Subscriber) Messages() <-chan RoomMessage {
	return s.out
}

// Start subscribes and pumps messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.pubsub = s.client.PSubscribe(ctx, events.RoomPatterns()...)
	if _, err := s.pubsub.Receive(ctx); err != nil {
		return err
	}

	go func() {
		defer close(s.out)
		ch := s.pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env events.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					s.log.Warnf("dropping malformed envelope on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case s.out <- RoomMessage{Room: msg.Channel, Envelope: env}:
				default:
					s.log.Warnf("subscriber backlog full, dropping %s event for %s", env.Event, msg.Channel)
				}
			}
		}
	}()
	return nil
}

func (s *Subscriber) Stop() error {
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
