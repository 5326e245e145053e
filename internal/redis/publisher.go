package redis

import (
	"context"
	"encoding/json"

	"amoura-chat/internal/events"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes event envelopes over Redis pub/sub. The room name is
// used verbatim as the channel name.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, room string, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, room, data).Err()
}
