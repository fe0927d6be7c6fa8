package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/services"
)

type QuoteRequest struct {
	Amount          *decimal.Decimal `json:"amount" binding:"required"`
	TransactionType string           `json:"transaction_type"`
	PayerVPA        string           `json:"payer_vpa"`
	PayeeVPA        string           `json:"payee_vpa"`
}

type ChargesHandler struct {
	transfers services.TransferService
}

func NewChargesHandler(transfers services.TransferService) *ChargesHandler {
	return &ChargesHandler{transfers: transfers}
}

// POST /api/v1/charges/quote
func (h *ChargesHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	quote, err := h.transfers.Quote(*req.Amount, req.TransactionType, req.PayerVPA, req.PayeeVPA)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, quote)
}
