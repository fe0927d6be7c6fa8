package db

import (
	"testing"

	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

func TestPostgresDSN(t *testing.T) {
	cfg := Config{
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresUser:     "upi",
		PostgresPassword: "secret",
		PostgresName:     "transfers",
	}
	want := "postgres://upi:secret@db:5432/transfers?sslmode=disable"
	if got := cfg.PostgresDSN(); got != want {
		t.Fatalf("dsn: want=%q got=%q", want, got)
	}
	cfg.PostgresSSLMode = "require"
	if got := cfg.PostgresDSN(); got != "postgres://upi:secret@db:5432/transfers?sslmode=require" {
		t.Fatalf("dsn sslmode: got=%q", got)
	}
}

func TestSQLiteServiceMigrates(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc, err := NewService(log, Config{Driver: "sqlite", SQLitePath: "file:migrate_test?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if svc.Driver() != DriverSQLite {
		t.Fatalf("driver: want=%q got=%q", DriverSQLite, svc.Driver())
	}
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	if !svc.DB().Migrator().HasTable("transactions") {
		t.Fatal("transactions table missing after migrate")
	}
}

func TestUnsupportedDriver(t *testing.T) {
	log, _ := logger.New("test")
	if _, err := NewService(log, Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
