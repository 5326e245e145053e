package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	presenceOnlineSet = "presence:online"
)

// PresenceStatus is the per-user record stored under presence:<id>.
type PresenceStatus struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// PresenceStore tracks which users hold live sockets. Presence entries
// carry a TTL so a crashed instance cannot leave users online forever;
// the online set is maintained best effort alongside.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{client: client, ttl: ttl}
}

func (p *PresenceStore) SetOnline(ctx context.Context, userID uuid.UUID) error {
	status := PresenceStatus{UserID: userID.String(), IsOnline: true, LastSeen: time.Now()}
	data, _ := json.Marshal(status)

	pipe := p.client.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+userID.String(), data, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID.String())
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) SetOffline(ctx context.Context, userID uuid.UUID) error {
	status := PresenceStatus{UserID: userID.String(), IsOnline: false, LastSeen: time.Now()}
	data, _ := json.Marshal(status)

	pipe := p.client.Pipeline()
	// Offline records live longer so last-seen stays queryable.
	pipe.Set(ctx, presenceKeyPrefix+userID.String(), data, 24*time.Hour)
	pipe.SRem(ctx, presenceOnlineSet, userID.String())
	_, err := pipe.Exec(ctx)
	return err
}

// Heartbeat refreshes the presence TTL for a connected user.
func (p *PresenceStore) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return p.client.Expire(ctx, presenceKeyPrefix+userID.String(), p.ttl).Err()
}

func (p *PresenceStore) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return p.client.SIsMember(ctx, presenceOnlineSet, userID.String()).Result()
}

// GetLastSeen returns the stored last-seen time, or zero when the user
// has never connected.
func (p *PresenceStore) GetLastSeen(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	data, err := p.client.Get(ctx, presenceKeyPrefix+userID.String()).Result()
	if err == goredis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	var status PresenceStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return time.Time{}, err
	}
	return status.LastSeen, nil
}
