package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/upi-transfer-backend/internal/http/handlers"
	httpMW "github.com/yungbote/upi-transfer-backend/internal/http/middleware"
	"github.com/yungbote/upi-transfer-backend/internal/idempotency"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration

	TransferHandler *httpH.TransferHandler
	VPAHandler      *httpH.VPAHandler
	ChargesHandler  *httpH.ChargesHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		if cfg.Metrics != nil {
			r.GET("/metrics", cfg.HealthHandler.Metrics)
		}
	}

	api := r.Group("/api/v1")
	{
		if cfg.HealthHandler != nil {
			api.GET("/health", cfg.HealthHandler.Health)
		}

		// Transfers
		if cfg.TransferHandler != nil {
			idem := httpMW.Idempotency(httpMW.IdempotencyConfig{
				Store:    cfg.Idempotency,
				Resource: "transfer",
				TTL:      cfg.IdempotencyTTL,
				Log:      cfg.Log,
				Metrics:  cfg.Metrics,
			})
			api.POST("/transfer", httpMW.RequireJSON(), idem, cfg.TransferHandler.ProcessTransfer)
			api.GET("/transfer/stats", cfg.TransferHandler.GetStats)
			api.GET("/transfer/history/:vpa", cfg.TransferHandler.GetTransactionHistory)
			api.GET("/transfer/summary/:vpa", cfg.TransferHandler.GetDailySummary)
			api.GET("/transfer/:ref", cfg.TransferHandler.GetTransactionStatus)
		}

		// VPA
		if cfg.VPAHandler != nil {
			api.POST("/validate/vpa", httpMW.RequireJSON(), cfg.VPAHandler.ValidateVPA)
			api.GET("/validate/vpa/:vpa", cfg.VPAHandler.ValidateVPAByPath)
			api.GET("/bank-handles", cfg.VPAHandler.ListBankHandles)
		}

		// Charges
		if cfg.ChargesHandler != nil {
			api.POST("/charges/quote", httpMW.RequireJSON(), cfg.ChargesHandler.Quote)
		}
	}

	return r
}
