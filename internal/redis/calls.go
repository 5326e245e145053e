package redis

import (
	"context"
	"encoding/json"
	"time"

	"amoura-chat/internal/domain"
	apperrors "amoura-chat/pkg/errors"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	callKeyPrefix     = "call:"
	callUserKeyPrefix = "call:user:"
)

// CallStore keeps in-flight call sessions in Redis with a TTL. A session
// that neither side terminates expires on its own, together with the
// per-user active-call markers that prevent double-dialing.
type CallStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewCallStore(client *goredis.Client, ttl time.Duration) *CallStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &CallStore{client: client, ttl: ttl}
}

func (s *CallStore) Save(ctx context.Context, session domain.CallSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, callKeyPrefix+session.ID.String(), data, s.ttl)
	pipe.Set(ctx, callUserKeyPrefix+session.CallerID.String(), session.ID.String(), s.ttl)
	pipe.Set(ctx, callUserKeyPrefix+session.ReceiverID.String(), session.ID.String(), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *CallStore) Get(ctx context.Context, callID uuid.UUID) (domain.CallSession, error) {
	data, err := s.client.Get(ctx, callKeyPrefix+callID.String()).Result()
	if err == goredis.Nil {
		return domain.CallSession{}, apperrors.ErrNotFound
	}
	if err != nil {
		return domain.CallSession{}, err
	}
	var session domain.CallSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return domain.CallSession{}, err
	}
	return session, nil
}

// ActiveForUser returns the session the user is currently part of, or
// ErrNotFound when they are free.
func (s *CallStore) ActiveForUser(ctx context.Context, userID uuid.UUID) (domain.CallSession, error) {
	callIDStr, err := s.client.Get(ctx, callUserKeyPrefix+userID.String()).Result()
	if err == goredis.Nil {
		return domain.CallSession{}, apperrors.ErrNotFound
	}
	if err != nil {
		return domain.CallSession{}, err
	}
	callID, err := uuid.Parse(callIDStr)
	if err != nil {
		return domain.CallSession{}, apperrors.ErrNotFound
	}
	return s.Get(ctx, callID)
}

func (s *CallStore) Delete(ctx context.Context, callID uuid.UUID) error {
	session, err := s.Get(ctx, callID)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, callKeyPrefix+callID.String())
	pipe.Del(ctx, callUserKeyPrefix+session.CallerID.String())
	pipe.Del(ctx, callUserKeyPrefix+session.ReceiverID.String())
	_, err = pipe.Exec(ctx)
	return err
}
