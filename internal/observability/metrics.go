package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	transfers        *CounterVec
	transferAmount   *CounterVec
	transferCharges  *Counter
	rejections       *CounterVec
	vpaValidations   *CounterVec
	idempotentReplay *Counter
	busPublishFailed *Counter

	sweepRuns    *Counter
	sweepExpired *Counter
	sweepErrors  *Counter

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init returns the process-wide registry, or nil when METRICS_ENABLED is off.
// A nil *Metrics is safe to call.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds an unregistered registry; tests use it directly.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("upi_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"upi_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("upi_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("upi_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("upi_api_requests_error_total", "API requests answered with a 5xx status."),

		transfers:        NewCounterVec("upi_transfers_total", "Processed transfers by final status and transaction type.", []string{"status", "transaction_type"}),
		transferAmount:   NewCounterVec("upi_transfer_amount_rupees_total", "Sum of transfer amounts by final status.", []string{"status"}),
		transferCharges:  NewCounter("upi_transfer_charges_rupees_total", "Sum of charges levied on successful transfers."),
		rejections:       NewCounterVec("upi_transfer_rejections_total", "Transfers rejected during validation by error code.", []string{"code"}),
		vpaValidations:   NewCounterVec("upi_vpa_validations_total", "VPA validations by outcome.", []string{"valid"}),
		idempotentReplay: NewCounter("upi_idempotent_replays_total", "Responses served from the idempotency store."),
		busPublishFailed: NewCounter("upi_event_publish_failures_total", "Transfer events that could not be published."),

		sweepRuns:    NewCounter("upi_stale_sweeps_total", "Stale transfer sweeps executed."),
		sweepExpired: NewCounter("upi_stale_transfers_expired_total", "Transfers moved to TIMEOUT by the sweeper."),
		sweepErrors:  NewCounter("upi_stale_sweep_errors_total", "Stale transfer sweeps that failed."),

		dbStats:   NewGaugeVec("upi_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("upi_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("upi_redis_ping_seconds", "Latency of the last redis ping."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.apiReqTotal,
		m.apiReqError,
		m.transfers,
		m.transferAmount,
		m.transferCharges,
		m.rejections,
		m.vpaValidations,
		m.idempotentReplay,
		m.busPublishFailed,
		m.sweepRuns,
		m.sweepExpired,
		m.sweepErrors,
		m.dbStats,
		m.redisUp,
		m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveTransfer records a transfer that reached a final status. Amounts are in rupees.
func (m *Metrics) ObserveTransfer(status, txnType string, amount, charges float64) {
	if m == nil {
		return
	}
	m.transfers.Inc(status, txnType)
	m.transferAmount.Add(amount, status)
	if strings.EqualFold(status, "SUCCESS") {
		m.transferCharges.Add(charges)
	}
}

func (m *Metrics) IncRejection(code string) {
	if m == nil {
		return
	}
	m.rejections.Inc(code)
}

func (m *Metrics) IncVPAValidation(valid bool) {
	if m == nil {
		return
	}
	m.vpaValidations.Inc(strconv.FormatBool(valid))
}

func (m *Metrics) IncIdempotentReplay() {
	if m == nil {
		return
	}
	m.idempotentReplay.Inc()
}

func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	m.busPublishFailed.Inc()
}

func (m *Metrics) ObserveSweep(expired int64, err error) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	if err != nil {
		m.sweepErrors.Inc()
		return
	}
	m.sweepExpired.Add(float64(expired))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings rdb on every scrape interval. The client is owned by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	if len(status) < 3 {
		return false
	}
	return status[0] == '5'
}
