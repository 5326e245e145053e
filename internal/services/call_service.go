package services

import (
	"context"
	"errors"
	"time"

	"amoura-chat/internal/domain"
	"amoura-chat/internal/repository"
	apperrors "amoura-chat/pkg/errors"
	"amoura-chat/pkg/logger"

	"github.com/google/uuid"
)

// CallSessionStore persists in-flight call state. Sessions are short
// lived and expire on their own if neither side terminates cleanly.
type CallSessionStore interface {
	Save(ctx context.Context, session domain.CallSession) error
	Get(ctx context.Context, callID uuid.UUID) (domain.CallSession, error)
	ActiveForUser(ctx context.Context, userID uuid.UUID) (domain.CallSession, error)
	Delete(ctx context.Context, callID uuid.UUID) error
}

// PresenceChecker answers whether a user currently holds a live socket.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

// CallService drives the ring/accept/reject/end lifecycle for 1:1 calls.
// All state lives in the session store; nothing is written to Postgres.
type CallService struct {
	sessions      CallSessionStore
	presence      PresenceChecker
	conversations repository.ConversationRepository
	log           *logger.Logger
}

func NewCallService(sessions CallSessionStore, presence PresenceChecker, conversations repository.ConversationRepository, log *logger.Logger) *CallService {
	return &CallService{
		sessions:      sessions,
		presence:      presence,
		conversations: conversations,
		log:           log,
	}
}

// Initiate starts ringing the other participant of the conversation.
// Fails with a conflict when the receiver is offline or either side is
// already on a call.
func (s *CallService) Initiate(ctx context.Context, callerID, conversationID uuid.UUID) (domain.CallSession, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return domain.CallSession{}, err
	}
	if !conv.HasParticipant(callerID) {
		return domain.CallSession{}, apperrors.ErrForbidden
	}
	receiverID := conv.OtherParticipant(callerID)

	online, err := s.presence.IsOnline(ctx, receiverID)
	if err != nil {
		return domain.CallSession{}, err
	}
	if !online {
		return domain.CallSession{}, apperrors.ErrConflict
	}

	for _, uid := range []uuid.UUID{callerID, receiverID} {
		if _, err := s.sessions.ActiveForUser(ctx, uid); err == nil {
			return domain.CallSession{}, apperrors.ErrConflict
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return domain.CallSession{}, err
		}
	}

	session := domain.CallSession{
		ID:             uuid.New(),
		ConversationID: conversationID,
		CallerID:       callerID,
		ReceiverID:     receiverID,
		Status:         domain.CallRinging,
		StartedAt:      time.Now(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.CallSession{}, err
	}
	return session, nil
}

// Accept transitions a ringing call to connected. Only the receiver may
// accept.
func (s *CallService) Accept(ctx context.Context, userID, callID uuid.UUID) (domain.CallSession, error) {
	session, err := s.sessions.Get(ctx, callID)
	if err != nil {
		return domain.CallSession{}, err
	}
	if session.ReceiverID != userID {
		return domain.CallSession{}, apperrors.ErrForbidden
	}
	if session.Status != domain.CallRinging {
		return domain.CallSession{}, apperrors.ErrConflict
	}
	now := time.Now()
	session.Status = domain.CallConnected
	session.ConnectedAt = &now
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.CallSession{}, err
	}
	return session, nil
}

// Reject terminates a ringing call from the receiver's side.
func (s *CallService) Reject(ctx context.Context, userID, callID uuid.UUID) (domain.CallSession, error) {
	session, err := s.sessions.Get(ctx, callID)
	if err != nil {
		return domain.CallSession{}, err
	}
	if session.ReceiverID != userID {
		return domain.CallSession{}, apperrors.ErrForbidden
	}
	if session.Status != domain.CallRinging {
		return domain.CallSession{}, apperrors.ErrConflict
	}
	now := time.Now()
	session.Status = domain.CallRejected
	session.EndedAt = &now
	session.EndedBy = &userID
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.log.ErrorfCtx(ctx, "failed to clear rejected call %s: %v", session.ID, err)
	}
	return session, nil
}

// End terminates a ringing or connected call. Either participant may end.
func (s *CallService) End(ctx context.Context, userID, callID uuid.UUID) (domain.CallSession, error) {
	session, err := s.sessions.Get(ctx, callID)
	if err != nil {
		return domain.CallSession{}, err
	}
	if !session.HasParticipant(userID) {
		return domain.CallSession{}, apperrors.ErrForbidden
	}
	if session.Status != domain.CallRinging && session.Status != domain.CallConnected {
		return domain.CallSession{}, apperrors.ErrConflict
	}
	now := time.Now()
	session.Status = domain.CallEnded
	session.EndedAt = &now
	session.EndedBy = &userID
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.log.ErrorfCtx(ctx, "failed to clear ended call %s: %v", session.ID, err)
	}
	return session, nil
}
