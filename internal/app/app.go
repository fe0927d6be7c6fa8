package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/upi-transfer-backend/internal/data/db"
	"github.com/yungbote/upi-transfer-backend/internal/http"
	"github.com/yungbote/upi-transfer-backend/internal/jobs/sweeper"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
	"github.com/yungbote/upi-transfer-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Server   *http.Server
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	Clients Clients
	Sweeper *sweeper.Sweeper

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	return NewWithConfig(log, cfg)
}

// NewWithConfig wires the application from an explicit config.
func NewWithConfig(log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(context.Background(), log, cfg.Otel)
	metrics := observability.Init(log)

	dbService, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	theDB := dbService.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, reposet, clients, metrics)
	handlerset := wireHandlers(log, theDB, serviceset, metrics)

	server := http.NewServer(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     otelServiceName(cfg),
		CORSOrigins:     cfg.CORSOrigins,
		Idempotency:     clients.Idempotency,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		TransferHandler: handlerset.Transfer,
		VPAHandler:      handlerset.VPA,
		ChargesHandler:  handlerset.Charges,
		HealthHandler:   handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Server:       server,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Clients:      clients,
		Sweeper:      sweeper.New(log, serviceset.Transfer, metrics, cfg.SweepInterval, cfg.StaleAfter),
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

func otelServiceName(cfg Config) string {
	if !cfg.Otel.Enabled {
		return ""
	}
	return cfg.Otel.ServiceName
}

// Run serves HTTP and runs the stale sweeper until ctx ends or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartDBCollector(gctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
	}
	a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)

	if err := a.Clients.Bus.StartForwarder(gctx, a.logTransferEvent); err != nil {
		a.Log.Warn("Transfer event forwarder not started", "error", err)
	}

	g.Go(func() error {
		return a.Sweeper.Run(gctx)
	})
	addr := ":" + strings.TrimPrefix(strings.TrimSpace(a.Cfg.Port), ":")
	g.Go(func() error {
		a.Log.Info("Server listening", "addr", addr)
		if err := a.Server.Run(addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down...")
		grace := a.Cfg.ShutdownGrace
		if grace <= 0 {
			grace = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), grace)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) logTransferEvent(evt bus.TransferEvent) {
	a.Log.Info("Transfer event",
		"type", evt.Type,
		"transaction_ref", evt.TransactionRef,
		"status", evt.Status,
		"payer_handle", evt.PayerHandle,
		"payee_handle", evt.PayeeHandle,
	)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func newRedisClient(addr string) (goredis.UniversalClient, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
