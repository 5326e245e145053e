package services

import (
	"context"
	"sync"
	"testing"

	"amoura-chat/internal/domain"
	"amoura-chat/internal/repository/repotest"
	apperrors "amoura-chat/pkg/errors"
	"amoura-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCallStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.CallSession
}

func newFakeCallStore() *fakeCallStore {
	return &fakeCallStore{sessions: make(map[uuid.UUID]domain.CallSession)}
}

func (s *fakeCallStore) Save(_ context.Context, session domain.CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *fakeCallStore) Get(_ context.Context, callID uuid.UUID) (domain.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[callID]
	if !ok {
		return domain.CallSession{}, apperrors.ErrNotFound
	}
	return session, nil
}

func (s *fakeCallStore) ActiveForUser(_ context.Context, userID uuid.UUID) (domain.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.HasParticipant(userID) {
			return session, nil
		}
	}
	return domain.CallSession{}, apperrors.ErrNotFound
}

func (s *fakeCallStore) Delete(_ context.Context, callID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
	return nil
}

type fakePresence struct {
	online map[uuid.UUID]bool
}

func (p *fakePresence) IsOnline(_ context.Context, userID uuid.UUID) (bool, error) {
	return p.online[userID], nil
}

func newTestCallService(online ...uuid.UUID) (*CallService, *ChatService, *fakeCallStore) {
	convRepo := repotest.NewConversationRepo()
	msgRepo := repotest.NewMessageRepo()
	chats := NewChatService(convRepo, msgRepo, logger.NewNop())

	presence := &fakePresence{online: make(map[uuid.UUID]bool)}
	for _, id := range online {
		presence.online[id] = true
	}
	store := newFakeCallStore()
	return NewCallService(store, presence, convRepo, logger.NewNop()), chats, store
}

func TestInitiateCallRequiresOnlineReceiver(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	calls, chats, _ := newTestCallService() // nobody online
	conv, err := chats.CreateConversation(context.Background(), alice, bob)
	require.NoError(t, err)

	_, err = calls.Initiate(context.Background(), alice, conv.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCallLifecycle(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	calls, chats, store := newTestCallService(bob)
	conv, err := chats.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	session, err := calls.Initiate(ctx, alice, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallRinging, session.Status)
	assert.Equal(t, bob, session.ReceiverID)

	// Caller cannot accept their own call.
	_, err = calls.Accept(ctx, alice, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	connected, err := calls.Accept(ctx, bob, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallConnected, connected.Status)
	require.NotNil(t, connected.ConnectedAt)

	ended, err := calls.End(ctx, alice, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, ended.Status)
	require.NotNil(t, ended.EndedBy)
	assert.Equal(t, alice, *ended.EndedBy)

	// The session is cleared after ending.
	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInitiateCallRejectsBusyParticipants(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	calls, chats, _ := newTestCallService(bob, carol)

	convAB, err := chats.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)
	convAC, err := chats.CreateConversation(ctx, alice, carol)
	require.NoError(t, err)

	_, err = calls.Initiate(ctx, alice, convAB.ID)
	require.NoError(t, err)

	// Alice is already on a call.
	_, err = calls.Initiate(ctx, alice, convAC.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRejectCall(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	calls, chats, store := newTestCallService(bob)
	conv, err := chats.CreateConversation(ctx, alice, bob)
	require.NoError(t, err)

	session, err := calls.Initiate(ctx, alice, conv.ID)
	require.NoError(t, err)

	rejected, err := calls.Reject(ctx, bob, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallRejected, rejected.Status)

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
