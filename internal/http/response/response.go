package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
)

// InternalMessage is the only text clients see for unexpected failures.
const InternalMessage = "An unexpected error occurred. Please try again later."

type APIError struct {
	Status      int                 `json:"status"`
	Code        string              `json:"code,omitempty"`
	Message     string              `json:"message"`
	Path        string              `json:"path,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	FieldErrors []apierr.FieldError `json:"field_errors,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error, fields ...apierr.FieldError) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		msg = InternalMessage
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Status:      status,
			Code:        code,
			Message:     msg,
			Path:        c.Request.URL.Path,
			Timestamp:   time.Now().UTC(),
			FieldErrors: fields,
		},
	})
}

// RespondAPIError unwraps *apierr.Error; anything else becomes a 500 INTERNAL_ERROR.
func RespondAPIError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := ae.Code
		if code == "" && status >= http.StatusInternalServerError {
			code = apierr.CodeInternal
		}
		if err != nil {
			_ = c.Error(err)
		}
		RespondError(c, status, code, ae, ae.Fields...)
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
