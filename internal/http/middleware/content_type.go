package middleware

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
)

// RequireJSON rejects bodies that are not declared as application/json with 415.
// Requests without a body are left to the handler.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Content-Type"))
		if raw == "" && c.Request.ContentLength <= 0 {
			c.Next()
			return
		}
		mt, _, err := mime.ParseMediaType(raw)
		if err != nil || !isJSONMediaType(mt) {
			response.RespondError(c, http.StatusUnsupportedMediaType, apierr.CodeUnsupportedMedia,
				fmt.Errorf("Content-Type '%s' is not supported. Use 'application/json'", raw))
			return
		}
		c.Next()
	}
}

func isJSONMediaType(mt string) bool {
	mt = strings.ToLower(mt)
	return mt == "application/json" || (strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}
