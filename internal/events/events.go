package events

import (
	"encoding/json"
	"time"
)

// Socket event names pushed to connected clients.
const (
	EventNewConversation   = "new_conversation"
	EventNewMessage        = "new_message"
	EventMessagesRead      = "messages_read"
	EventMessageDeleted    = "message_deleted"
	EventTypingIndicator   = "typing_indicator"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventIncomingCall      = "incoming_call"
	EventCallAccepted      = "call_accepted"
	EventCallRejected      = "call_rejected"
	EventCallEnded         = "call_ended"
)

// Envelope is the unit carried over the Redis pub/sub channels. The room
// name doubles as the channel name, so any service instance can deliver
// to whichever sockets it holds locally. Origin identifies the socket
// client that triggered the event so the bridge can skip echoing it back.
type Envelope struct {
	Event      string          `json:"event"`
	Origin     string          `json:"origin,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(event, origin string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Event:      event,
		Origin:     origin,
		OccurredAt: time.Now(),
		Payload:    data,
	}, nil
}
