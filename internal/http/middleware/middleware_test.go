package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/idempotency"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
	"github.com/yungbote/upi-transfer-backend/internal/platform/ctxutil"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.APIError {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-1")
	req.Header.Set(headerIdempotencyKey, " key-1 ")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil {
		t.Fatal("trace data not attached")
	}
	if seen.RequestID != "req-1" || seen.IdempotencyKey != "key-1" || seen.TraceID == "" {
		t.Fatalf("unexpected trace data: %+v", seen)
	}
	if rec.Header().Get(headerRequestID) != "req-1" || rec.Header().Get(headerTraceID) != seen.TraceID {
		t.Fatalf("response headers not echoed: %v", rec.Header())
	}
}

func TestRequireJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", RequireJSON(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		contentType string
		body        string
		want        int
	}{
		{"application/json", `{}`, http.StatusNoContent},
		{"application/json; charset=utf-8", `{}`, http.StatusNoContent},
		{"application/merge-patch+json", `{}`, http.StatusNoContent},
		{"text/plain", `hello`, http.StatusUnsupportedMediaType},
		{"application/xml", `<a/>`, http.StatusUnsupportedMediaType},
		{"", `{}`, http.StatusUnsupportedMediaType},
		{"", ``, http.StatusNoContent},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tc.body))
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("content-type %q: want=%d got=%d", tc.contentType, tc.want, rec.Code)
		}
		if tc.want == http.StatusUnsupportedMediaType {
			apiErr := decodeError(t, rec)
			if apiErr.Code != apierr.CodeUnsupportedMedia {
				t.Fatalf("code: want=%s got=%s", apierr.CodeUnsupportedMedia, apiErr.Code)
			}
		}
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(nil))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=500 got=%d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Code != apierr.CodeInternal || apiErr.Message != response.InternalMessage {
		t.Fatalf("unexpected envelope: %+v", apiErr)
	}
}

func idempotentRouter(store idempotency.Store, m *observability.Metrics, calls *atomic.Int64, status int) *gin.Engine {
	r := gin.New()
	r.POST("/transfer", Idempotency(IdempotencyConfig{Store: store, Resource: "transfer", Metrics: m}), func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(status, gin.H{"call": n})
	})
	return r
}

func post(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/transfer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(headerIdempotencyKey, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls atomic.Int64
	m := observability.NewMetrics()
	r := idempotentRouter(idempotency.NewMemoryStore(), m, &calls, http.StatusCreated)

	first := post(r, "k1", `{"amount":10}`)
	second := post(r, "k1", `{"amount":10}`)

	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("status: first=%d second=%d", first.Code, second.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler calls: want=1 got=%d", calls.Load())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get(headerIdempotentReplay) != "true" {
		t.Fatal("replay header missing")
	}

	conflict := post(r, "k1", `{"amount":11}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("conflict status: want=409 got=%d", conflict.Code)
	}
	if apiErr := decodeError(t, conflict); apiErr.Code != apierr.CodeIdempotencyConflict {
		t.Fatalf("conflict code: got=%s", apiErr.Code)
	}

	post(r, "", `{"amount":10}`)
	post(r, "", `{"amount":10}`)
	if calls.Load() != 3 {
		t.Fatalf("requests without key must not be deduplicated: calls=%d", calls.Load())
	}
}

func TestIdempotencyInFlight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := idempotency.NewMemoryStore()
	key := idempotency.CacheKey("transfer", "busy")
	if ok, err := store.Reserve(t.Context(), key, idempotency.Fingerprint([]byte(`{}`)), 0); err != nil || !ok {
		t.Fatalf("reserve: ok=%v err=%v", ok, err)
	}
	var calls atomic.Int64
	r := idempotentRouter(store, nil, &calls, http.StatusCreated)
	rec := post(r, "busy", `{}`)
	if rec.Code != http.StatusConflict || calls.Load() != 0 {
		t.Fatalf("in-flight: status=%d calls=%d", rec.Code, calls.Load())
	}
}

func TestIdempotencyReleasesOnServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls atomic.Int64
	r := idempotentRouter(idempotency.NewMemoryStore(), nil, &calls, http.StatusInternalServerError)
	post(r, "k2", `{}`)
	post(r, "k2", `{}`)
	if calls.Load() != 2 {
		t.Fatalf("5xx responses must not be replayed: calls=%d", calls.Load())
	}
}

func TestIdempotencyReleasesOnPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls atomic.Int64
	r := gin.New()
	r.Use(Recovery(nil))
	r.POST("/transfer", Idempotency(IdempotencyConfig{Store: idempotency.NewMemoryStore(), Resource: "transfer"}), func(c *gin.Context) {
		if calls.Add(1) == 1 {
			panic("settlement exploded")
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	first := post(r, "k3", `{"amount":10}`)
	if first.Code != http.StatusInternalServerError {
		t.Fatalf("first status: want=500 got=%d", first.Code)
	}
	if apiErr := decodeError(t, first); apiErr.Code != apierr.CodeInternal {
		t.Fatalf("first code: got=%s", apiErr.Code)
	}

	retry := post(r, "k3", `{"amount":10}`)
	if retry.Code != http.StatusCreated {
		t.Fatalf("retry status: want=201 got=%d body=%s", retry.Code, retry.Body.String())
	}
	if calls.Load() != 2 {
		t.Fatalf("retry after panic must reach the handler: calls=%d", calls.Load())
	}
}

func TestIdempotencyKeyTooLong(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls atomic.Int64
	r := idempotentRouter(idempotency.NewMemoryStore(), nil, &calls, http.StatusCreated)
	rec := post(r, strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`)
	if rec.Code != http.StatusBadRequest || calls.Load() != 0 {
		t.Fatalf("long key: status=%d calls=%d", rec.Code, calls.Load())
	}
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/v1/transfer/:ref", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/transfer/TXN1", nil))

	var sb strings.Builder
	if err := m.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	want := `upi_api_requests_total{method="GET",route="/api/v1/transfer/:ref",status="200"} 1.000000`
	if !strings.Contains(sb.String(), want) {
		t.Fatalf("missing %q in\n%s", want, sb.String())
	}
}
