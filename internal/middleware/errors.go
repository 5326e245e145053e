package middleware

import (
	"amoura-chat/internal/transport/httpdto"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Errors logs any errors handlers attached to the context and renders a
// generic envelope for responses that were aborted without a body.
func Errors(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.ErrorfCtx(c.Request.Context(), "request error: %s", err.Error())
		}
		if !c.Writer.Written() {
			c.JSON(c.Writer.Status(), httpdto.NewErrorResponse("internal server error"))
		}
	}
}
