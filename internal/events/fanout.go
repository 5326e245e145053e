package events

import (
	"context"

	"amoura-chat/internal/domain"
	"amoura-chat/pkg/logger"

	"github.com/google/uuid"
)

// Publisher pushes an envelope onto a named room channel.
type Publisher interface {
	Publish(ctx context.Context, room string, env Envelope) error
}

// Fanout is the single place handlers and socket frames go through to
// emit realtime events. Publish failures are logged and dropped; realtime
// delivery is best effort and never fails the originating request.
type Fanout struct {
	pub Publisher
	log *logger.Logger
}

func NewFanout(pub Publisher, log *logger.Logger) *Fanout {
	return &Fanout{pub: pub, log: log}
}

// ToUser emits to a single user's room.
func (f *Fanout) ToUser(ctx context.Context, userID uuid.UUID, event, origin string, payload any) {
	f.emit(ctx, UserRoom(userID), event, origin, payload)
}

// ToParticipants emits to both participants' user rooms, skipping the
// actor so clients do not receive notifications for their own actions.
func (f *Fanout) ToParticipants(ctx context.Context, conv domain.Conversation, actorID uuid.UUID, event, origin string, payload any) {
	for _, uid := range conv.ParticipantIDs() {
		if uid == actorID {
			continue
		}
		f.emit(ctx, UserRoom(uid), event, origin, payload)
	}
}

// ToConversation emits to the conversation room. The origin client is
// excluded on delivery by the bridge, not here, so other devices of the
// same user still receive the event.
func (f *Fanout) ToConversation(ctx context.Context, conversationID uuid.UUID, event, origin string, payload any) {
	f.emit(ctx, ConversationRoom(conversationID), event, origin, payload)
}

func (f *Fanout) emit(ctx context.Context, room, event, origin string, payload any) {
	env, err := NewEnvelope(event, origin, payload)
	if err != nil {
		f.log.ErrorfCtx(ctx, "failed to encode %s event for room %s: %v", event, room, err)
		return
	}
	if err := f.pub.Publish(ctx, room, env); err != nil {
		f.log.ErrorfCtx(ctx, "failed to publish %s event to room %s: %v", event, room, err)
	}
}
