package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/idempotency"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

const (
	headerIdempotentReplay = "Idempotent-Replayed"
	maxIdempotencyKeyLen   = 255
)

var (
	errKeyReused     = errors.New("Idempotency-Key was already used with a different request body")
	errKeyInProgress = errors.New("A request with this Idempotency-Key is still being processed")
)

type IdempotencyConfig struct {
	Store    idempotency.Store
	Resource string
	TTL      time.Duration
	Log      *logger.Logger
	Metrics  *observability.Metrics
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key with the same body.
// Requests without the header pass straight through. Store failures fail open.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	resource := cfg.Resource
	if resource == "" {
		resource = "default"
	}
	return func(c *gin.Context) {
		clientKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
		if clientKey == "" {
			c.Next()
			return
		}
		if len(clientKey) > maxIdempotencyKeyLen {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeValidation,
				errors.New("Invalid request parameters"),
				apierr.FieldError{Field: headerIdempotencyKey, Message: fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLen)})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidBody, errors.New("Invalid request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		key := idempotency.CacheKey(resource, clientKey)
		hash := idempotency.Fingerprint(body)

		reserved, err := cfg.Store.Reserve(ctx, key, hash, cfg.TTL)
		if err != nil {
			warn(cfg.Log, "Idempotency store unavailable, processing without it", "error", err)
			c.Next()
			return
		}
		if !reserved {
			replayOrReject(c, cfg, key, hash)
			return
		}

		// A panicking handler must not leave the key reserved; Recovery still writes the 500.
		defer func() {
			if r := recover(); r != nil {
				release(ctx, cfg, key)
				panic(r)
			}
		}()

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			release(ctx, cfg, key)
			return
		}
		// Persist with a fresh context so a cancelled client does not lose the record.
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		entry := idempotency.Entry{
			State:           idempotency.StateCompleted,
			RequestBodyHash: hash,
			StatusCode:      status,
			Response:        append([]byte(nil), w.body.Bytes()...),
			CreatedAt:       time.Now().UTC(),
		}
		if err := cfg.Store.Put(storeCtx, key, entry, cfg.TTL); err != nil {
			warn(cfg.Log, "Failed to store idempotent response", "error", err)
		}
	}
}

func release(ctx context.Context, cfg IdempotencyConfig, key string) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := cfg.Store.Release(storeCtx, key); err != nil {
		warn(cfg.Log, "Failed to release idempotency key", "error", err)
	}
}

func replayOrReject(c *gin.Context, cfg IdempotencyConfig, key, hash string) {
	entry, err := cfg.Store.Get(c.Request.Context(), key)
	if err != nil {
		// The reservation vanished between calls; treat as in flight rather than double-process.
		response.RespondError(c, http.StatusConflict, apierr.CodeIdempotencyConflict, errKeyInProgress)
		return
	}
	if entry.RequestBodyHash != hash {
		response.RespondError(c, http.StatusConflict, apierr.CodeIdempotencyConflict, errKeyReused)
		return
	}
	if !entry.Completed() {
		response.RespondError(c, http.StatusConflict, apierr.CodeIdempotencyConflict, errKeyInProgress)
		return
	}
	cfg.Metrics.IncIdempotentReplay()
	c.Header(headerIdempotentReplay, "true")
	c.Data(entry.StatusCode, "application/json; charset=utf-8", entry.Response)
	c.Abort()
}

func warn(log *logger.Logger, msg string, kv ...interface{}) {
	if log != nil {
		log.Warn(msg, kv...)
	}
}
