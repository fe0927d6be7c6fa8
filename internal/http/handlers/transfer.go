package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/payments/reference"
	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
	"github.com/yungbote/upi-transfer-backend/internal/services"
)

type TransferHandler struct {
	log       *logger.Logger
	transfers services.TransferService
}

func NewTransferHandler(log *logger.Logger, transfers services.TransferService) *TransferHandler {
	return &TransferHandler{log: log.With("handler", "TransferHandler"), transfers: transfers}
}

// POST /api/v1/transfer
func (h *TransferHandler) ProcessTransfer(c *gin.Context) {
	var req services.TransferRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.log.Debug("Received transfer request", "payer_vpa", req.PayerVPA, "payee_vpa", req.PayeeVPA)
	res, err := h.transfers.Process(c.Request.Context(), &req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/v1/transfer/:ref
func (h *TransferHandler) GetTransactionStatus(c *gin.Context) {
	ref := c.Param("ref")
	if !reference.IsTransactionRef(ref) {
		response.RespondAPIError(c, apierr.Payment(apierr.CodeTxnNotFound, "Transaction not found: "+ref))
		return
	}
	res, err := h.transfers.Status(c.Request.Context(), ref)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/v1/transfer/history/:vpa
func (h *TransferHandler) GetTransactionHistory(c *gin.Context) {
	history, err := h.transfers.History(c.Request.Context(), c.Param("vpa"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, history)
}

// GET /api/v1/transfer/summary/:vpa?date=YYYY-MM-DD
func (h *TransferHandler) GetDailySummary(c *gin.Context) {
	var day time.Time
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.RespondAPIError(c, apierr.Validation("Invalid request parameters",
				apierr.FieldError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"}))
			return
		}
		day = parsed
	}
	summary, err := h.transfers.DailySummary(c.Request.Context(), c.Param("vpa"), day)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, summary)
}

// GET /api/v1/transfer/stats
func (h *TransferHandler) GetStats(c *gin.Context) {
	stats, err := h.transfers.Stats(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, stats)
}
