package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallStatus string

const (
	CallRinging   CallStatus = "ringing"
	CallConnected CallStatus = "connected"
	CallRejected  CallStatus = "rejected"
	CallEnded     CallStatus = "ended"
)

// CallSession is the ephemeral state of a video call. Sessions live in
// Redis with a TTL, not in the relational store.
type CallSession struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	CallerID       uuid.UUID  `json:"callerId"`
	ReceiverID     uuid.UUID  `json:"receiverId"`
	Status         CallStatus `json:"status"`
	StartedAt      time.Time  `json:"startedAt"`
	ConnectedAt    *time.Time `json:"connectedAt,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	EndedBy        *uuid.UUID `json:"endedBy,omitempty"`
}

// HasParticipant reports whether userID is on either end of the call.
func (s CallSession) HasParticipant(userID uuid.UUID) bool {
	return userID == s.CallerID || userID == s.ReceiverID
}

// OtherParticipant returns the counterpart of userID.
func (s CallSession) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if userID == s.CallerID {
		return s.ReceiverID
	}
	return s.CallerID
}
