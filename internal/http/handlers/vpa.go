package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/upi-transfer-backend/internal/http/response"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/payments/vpa"
)

type ValidateVPARequest struct {
	VPA string `json:"vpa" binding:"required"`
}

type BankHandlesResponse struct {
	Count   int      `json:"count"`
	Handles []string `json:"handles"`
}

type VPAHandler struct {
	validator *vpa.Validator
	metrics   *observability.Metrics
}

func NewVPAHandler(validator *vpa.Validator, metrics *observability.Metrics) *VPAHandler {
	return &VPAHandler{validator: validator, metrics: metrics}
}

// POST /api/v1/validate/vpa
func (h *VPAHandler) ValidateVPA(c *gin.Context) {
	var req ValidateVPARequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.respond(c, req.VPA)
}

// GET /api/v1/validate/vpa/:vpa
func (h *VPAHandler) ValidateVPAByPath(c *gin.Context) {
	h.respond(c, c.Param("vpa"))
}

func (h *VPAHandler) respond(c *gin.Context, raw string) {
	res := h.validator.Validate(raw)
	h.metrics.IncVPAValidation(res.Valid)
	response.RespondOK(c, res)
}

// GET /api/v1/bank-handles
func (h *VPAHandler) ListBankHandles(c *gin.Context) {
	handles := h.validator.BankHandles()
	response.RespondOK(c, BankHandlesResponse{Count: len(handles), Handles: handles})
}
