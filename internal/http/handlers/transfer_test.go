package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/upi-transfer-backend/internal/domain/transfer"
	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
	"github.com/yungbote/upi-transfer-backend/internal/services"
)

type statusOnlyService struct {
	services.TransferService
	calls []string
}

func (s *statusOnlyService) Status(ctx context.Context, ref string) (*services.TransferResult, error) {
	s.calls = append(s.calls, ref)
	return &services.TransferResult{TransactionRef: ref, Status: types.StatusSuccess}, nil
}

func statusRouter(t *testing.T, svc services.TransferService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewTransferHandler(log, svc)
	r := gin.New()
	r.GET("/api/v1/transfer/:ref", h.GetTransactionStatus)
	return r
}

func TestGetTransactionStatusRejectsMalformedRef(t *testing.T) {
	svc := &statusOnlyService{}
	r := statusRouter(t, svc)

	for _, ref := range []string{"TXN000", "ABC2024120712000099", "TXN20241207120000xx"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transfer/"+ref, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status want=404 got=%d", ref, rec.Code)
		}
		var env response.ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s: decode: %v", ref, err)
		}
		if env.Error.Code != apierr.CodeTxnNotFound || env.Error.Message != "Transaction not found: "+ref {
			t.Fatalf("%s: unexpected envelope %+v", ref, env.Error)
		}
	}
	if len(svc.calls) != 0 {
		t.Fatalf("malformed refs must not reach the service: %v", svc.calls)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transfer/TXN2024120712000099", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("well-formed ref: status want=200 got=%d", rec.Code)
	}
	if len(svc.calls) != 1 || svc.calls[0] != "TXN2024120712000099" {
		t.Fatalf("well-formed ref: calls=%v", svc.calls)
	}
}
