package handler

import (
	"net/http"

	"amoura-chat/internal/services"
	"amoura-chat/internal/storage"
	"amoura-chat/internal/transport/httpdto"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	store *storage.MediaStore
	log   *logger.Logger
}

func NewMediaHandler(store *storage.MediaStore, log *logger.Logger) *MediaHandler {
	return &MediaHandler{store: store, log: log}
}

// PresignUpload returns a pre-signed PUT URL for direct media upload.
// Deployments without an S3 bucket run with no store wired.
func (h *MediaHandler) PresignUpload(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("media uploads not configured"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized"))
		return
	}

	var req httpdto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request"))
		return
	}

	uploadURL, objectKey, err := h.store.PresignUpload(c.Request.Context(), userID, req.FileName, req.ContentType, req.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignUploadResponse{
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		PublicURL: h.store.PublicURL(objectKey),
		ExpiresIn: int64(h.store.PresignTTL().Seconds()),
	}))
}
