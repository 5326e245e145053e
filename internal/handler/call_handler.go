package handler

import (
	"context"
	"errors"
	"net/http"

	"amoura-chat/internal/domain"
	"amoura-chat/internal/events"
	"amoura-chat/internal/services"
	"amoura-chat/internal/transport/httpdto"
	apperrors "amoura-chat/pkg/errors"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CallHandler struct {
	calls  *services.CallService
	fanout *events.Fanout
	log    *logger.Logger
}

func NewCallHandler(calls *services.CallService, fanout *events.Fanout, log *logger.Logger) *CallHandler {
	return &CallHandler{calls: calls, fanout: fanout, log: log}
}

func (h *CallHandler) Initiate(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	var req httpdto.InitiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request"))
		return
	}

	session, err := h.calls.Initiate(c.Request.Context(), userID, req.ConversationID)
	if err != nil {
		h.respondCallError(c, err)
		return
	}

	h.fanout.ToUser(c.Request.Context(), session.ReceiverID, events.EventIncomingCall, "", session)
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(session))
}

func (h *CallHandler) Accept(c *gin.Context) {
	h.transition(c, h.calls.Accept, events.EventCallAccepted)
}

func (h *CallHandler) Reject(c *gin.Context) {
	h.transition(c, h.calls.Reject, events.EventCallRejected)
}

func (h *CallHandler) End(c *gin.Context) {
	h.transition(c, h.calls.End, events.EventCallEnded)
}

func (h *CallHandler) transition(c *gin.Context, op func(ctx context.Context, userID, callID uuid.UUID) (domain.CallSession, error), event string) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}
	callID, err := uuid.Parse(c.Param("callId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid call id"))
		return
	}

	session, err := op(c.Request.Context(), userID, callID)
	if err != nil {
		h.respondCallError(c, err)
		return
	}

	h.fanout.ToUser(c.Request.Context(), session.OtherParticipant(userID), event, "", session)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(session))
}

func (h *CallHandler) respondCallError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("call not found or access denied"))
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("call unavailable"))
	default:
		h.log.ErrorfCtx(c.Request.Context(), "unhandled call error: %v", err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal server error"))
	}
}
