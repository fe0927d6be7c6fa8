package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/upi-transfer-backend/internal/data/repos"
	httpH "github.com/yungbote/upi-transfer-backend/internal/http/handlers"
	"github.com/yungbote/upi-transfer-backend/internal/idempotency"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/payments/reference"
	"github.com/yungbote/upi-transfer-backend/internal/payments/rules"
	"github.com/yungbote/upi-transfer-backend/internal/payments/vpa"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
	"github.com/yungbote/upi-transfer-backend/internal/realtime/bus"
	"github.com/yungbote/upi-transfer-backend/internal/services"
)

// Clients holds the shared external connections. Redis is optional; without it
// the bus and idempotency store run in memory.
type Clients struct {
	Redis       goredis.UniversalClient
	Bus         bus.Bus
	Idempotency idempotency.Store
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		log.Warn("REDIS_ADDR not set; using in-memory event bus and idempotency store")
		return Clients{
			Bus:         bus.NewMemoryBus(log),
			Idempotency: idempotency.NewMemoryStore(),
		}, nil
	}
	rdb, err := newRedisClient(cfg.RedisAddr)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	return Clients{
		Redis:       rdb,
		Bus:         bus.NewRedisBusWithClient(log, rdb, cfg.RedisChannel),
		Idempotency: idempotency.NewRedisStore(log, rdb),
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Idempotency != nil {
		_ = c.Idempotency.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

type Repos struct {
	Transaction repos.TransactionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Transaction: repos.NewTransactionRepo(db, log),
	}
}

type Services struct {
	Rules     *rules.Rules
	Validator *vpa.Validator
	Transfer  services.TransferService
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	r := rules.Load(log)
	return Services{
		Rules:     r,
		Validator: vpa.NewValidator(r),
		Transfer: services.NewTransferService(
			db,
			log,
			reposet.Transaction,
			r,
			reference.NewGenerator(),
			clients.Bus,
			services.WithMetrics(metrics),
		),
	}
}

type Handlers struct {
	Transfer *httpH.TransferHandler
	VPA      *httpH.VPAHandler
	Charges  *httpH.ChargesHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, serviceset Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Transfer: httpH.NewTransferHandler(log, serviceset.Transfer),
		VPA:      httpH.NewVPAHandler(serviceset.Validator, metrics),
		Charges:  httpH.NewChargesHandler(serviceset.Transfer),
		Health:   httpH.NewHealthHandler(db, metrics),
	}
}
