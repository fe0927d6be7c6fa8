package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
	"github.com/yungbote/upi-transfer-backend/internal/platform/ctxutil"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

// Recovery turns a handler panic into the standard INTERNAL_ERROR envelope.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if log != nil {
			fields := append([]interface{}{"panic", fmt.Sprint(recovered), "path", c.Request.URL.Path}, ctxutil.LogFields(c.Request.Context())...)
			log.Error("Handler panic", fields...)
		}
		response.RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, fmt.Errorf("panic: %v", recovered))
	})
}
