package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"amoura-chat/pkg/logger"

	"github.com/google/uuid"
)

// PushRequest is the payload handed to the notification service when the
// recipient has no live socket.
type PushRequest struct {
	UserID         uuid.UUID `json:"userId"`
	SenderID       uuid.UUID `json:"senderId"`
	ConversationID uuid.UUID `json:"conversationId"`
	MessageID      uuid.UUID `json:"messageId"`
	Preview        string    `json:"preview"`
}

// Client talks to the platform's notification service. Pushes are fire
// and forget: a delivery failure is logged, never surfaced to the
// sender.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

// PushNewMessage notifies an offline recipient about a message.
func (c *Client) PushNewMessage(ctx context.Context, req PushRequest) {
	if c.baseURL == "" {
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		c.log.ErrorfCtx(ctx, "failed to encode push payload: %v", err)
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/notifications/message", bytes.NewReader(body))
	if err != nil {
		c.log.ErrorfCtx(ctx, "failed to build push request: %v", err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.WarnfCtx(ctx, "push delivery failed for user %s: %v", req.UserID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.log.WarnfCtx(ctx, "push delivery failed for user %s: %s", req.UserID, fmt.Sprintf("status %d", resp.StatusCode))
	}
}
