package handler

import (
	"context"
	"net/http"
	"time"

	"amoura-chat/internal/transport/httpdto"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PresenceReader exposes the presence store fields this handler serves.
type PresenceReader interface {
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
	GetLastSeen(ctx context.Context, userID uuid.UUID) (time.Time, error)
}

type PresenceHandler struct {
	presence PresenceReader
	log      *logger.Logger
}

func NewPresenceHandler(presence PresenceReader, log *logger.Logger) *PresenceHandler {
	return &PresenceHandler{presence: presence, log: log}
}

// Get reports whether a user is online and when they were last seen. A user
// who has never connected gets isOnline=false with no lastSeen.
func (h *PresenceHandler) Get(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id"))
		return
	}

	ctx := c.Request.Context()
	online, err := h.presence.IsOnline(ctx, userID)
	if err != nil {
		h.log.ErrorfCtx(ctx, "presence lookup failed for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal server error"))
		return
	}

	resp := httpdto.PresenceResponse{UserID: userID, IsOnline: online}
	lastSeen, err := h.presence.GetLastSeen(ctx, userID)
	if err != nil {
		h.log.WarnfCtx(ctx, "last-seen lookup failed for %s: %v", userID, err)
	} else if !lastSeen.IsZero() {
		resp.LastSeen = &lastSeen
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}
