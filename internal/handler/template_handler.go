package handler

import (
	"net/http"

	"amoura-chat/internal/services"
	"amoura-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// List returns the message template catalog, optionally filtered by the
// category query parameter.
func (h *TemplateHandler) List(c *gin.Context) {
	templates := services.ListTemplates(c.Query("category"))
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(templates))
}
