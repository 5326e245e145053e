package events

import (
	"context"
	"errors"
	"testing"

	"amoura-chat/internal/domain"
	"amoura-chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	published []struct {
		Room string
		Env  Envelope
	}
	err error
}

func (p *capturingPublisher) Publish(_ context.Context, room string, env Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, struct {
		Room string
		Env  Envelope
	}{room, env})
	return nil
}

func TestFanoutToParticipantsSkipsActor(t *testing.T) {
	pub := &capturingPublisher{}
	fanout := NewFanout(pub, logger.NewNop())

	alice, bob := uuid.New(), uuid.New()
	conv := domain.Conversation{ID: uuid.New(), User1ID: alice, User2ID: bob}

	fanout.ToParticipants(context.Background(), conv, alice, EventNewConversation, "", map[string]string{"hello": "world"})

	require.Len(t, pub.published, 1)
	assert.Equal(t, UserRoom(bob), pub.published[0].Room)
	assert.Equal(t, EventNewConversation, pub.published[0].Env.Event)
}

func TestFanoutToConversationCarriesOrigin(t *testing.T) {
	pub := &capturingPublisher{}
	fanout := NewFanout(pub, logger.NewNop())

	convID := uuid.New()
	fanout.ToConversation(context.Background(), convID, EventUserTyping, "client-42", map[string]bool{"isTyping": true})

	require.Len(t, pub.published, 1)
	assert.Equal(t, ConversationRoom(convID), pub.published[0].Room)
	assert.Equal(t, "client-42", pub.published[0].Env.Origin)
}

func TestFanoutSwallowsPublishErrors(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("redis down")}
	fanout := NewFanout(pub, logger.NewNop())

	// Must not panic and must not propagate anywhere.
	fanout.ToUser(context.Background(), uuid.New(), EventNewMessage, "", map[string]string{"x": "y"})
	assert.Empty(t, pub.published)
}

func TestRoomNames(t *testing.T) {
	id := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	assert.Equal(t, "user_f47ac10b-58cc-4372-a567-0e02b2c3d479", UserRoom(id))
	assert.Equal(t, "conversation_f47ac10b-58cc-4372-a567-0e02b2c3d479", ConversationRoom(id))
	assert.Equal(t, []string{"user_*", "conversation_*"}, RoomPatterns())
}
