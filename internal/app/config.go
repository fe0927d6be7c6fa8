package app

import (
	"time"

	"github.com/yungbote/upi-transfer-backend/internal/data/db"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/platform/envutil"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
	"github.com/yungbote/upi-transfer-backend/internal/realtime/bus"
)

type Config struct {
	Port string
	DB   db.Config

	RedisAddr    string
	RedisChannel string

	IdempotencyTTL time.Duration
	SweepInterval  time.Duration
	StaleAfter     time.Duration
	ShutdownGrace  time.Duration

	CORSOrigins []string
	MetricsAddr string
	Otel        observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port: envutil.String("PORT", "8080", log),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres, log),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost", log),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432", log),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres", log),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", "", log),
			PostgresName:     envutil.String("POSTGRES_NAME", "upi_transfer", log),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable", log),
			SQLitePath:       envutil.String("SQLITE_PATH", "", log),
		},
		RedisAddr:      envutil.String("REDIS_ADDR", "", log),
		RedisChannel:   envutil.String("REDIS_CHANNEL", bus.DefaultChannel, log),
		IdempotencyTTL: envutil.Duration("IDEMPOTENCY_TTL", 24*time.Hour, log),
		SweepInterval:  envutil.Duration("STALE_SWEEP_INTERVAL", time.Minute, log),
		StaleAfter:     envutil.Duration("STALE_AFTER", 5*time.Minute, log),
		ShutdownGrace:  envutil.Duration("SHUTDOWN_GRACE", 10*time.Second, log),
		CORSOrigins:    envutil.List("CORS_ALLOW_ORIGINS", nil, log),
		MetricsAddr:    envutil.String("METRICS_ADDR", "", log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "upi-transfer", log),
			Environment: envutil.String("ENVIRONMENT", "development", log),
			Version:     envutil.String("SERVICE_VERSION", "dev", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true, log),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1.0, log),
		},
	}
}
