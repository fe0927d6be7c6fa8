package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	repos "github.com/yungbote/upi-transfer-backend/internal/data/repos/transfer"
	types "github.com/yungbote/upi-transfer-backend/internal/domain/transfer"
	"github.com/yungbote/upi-transfer-backend/internal/observability"
	"github.com/yungbote/upi-transfer-backend/internal/payments/charges"
	"github.com/yungbote/upi-transfer-backend/internal/payments/money"
	"github.com/yungbote/upi-transfer-backend/internal/payments/reference"
	"github.com/yungbote/upi-transfer-backend/internal/payments/rules"
	"github.com/yungbote/upi-transfer-backend/internal/payments/vpa"
	"github.com/yungbote/upi-transfer-backend/internal/platform/apierr"
	"github.com/yungbote/upi-transfer-backend/internal/platform/ctxutil"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
	"github.com/yungbote/upi-transfer-backend/internal/realtime/bus"
)

const (
	maxRemarksLength = 500
	historyLimit     = 10
	refAttempts      = 3

	// FailTrigger makes the simulated bank reject a transfer when either VPA contains it.
	FailTrigger = "fail"

	timeoutReason = "No response from bank within the processing window"
)

type TransferRequest struct {
	PayerVPA        string           `json:"payer_vpa" binding:"required"`
	PayeeVPA        string           `json:"payee_vpa" binding:"required"`
	Amount          *decimal.Decimal `json:"amount" binding:"required"`
	TransactionType string           `json:"transaction_type"`
	Remarks         string           `json:"remarks"`
	// UPIPin is accepted for wire compatibility and never stored.
	UPIPin string `json:"upi_pin,omitempty"`
}

type TransferResult struct {
	TransactionRef  string          `json:"transaction_ref"`
	Status          types.Status    `json:"status"`
	Message         string          `json:"message"`
	Timestamp       time.Time       `json:"timestamp"`
	Amount          money.Money     `json:"amount"`
	Charges         money.Money     `json:"charges"`
	TotalAmount     money.Money     `json:"total_amount"`
	PayerVPA        string          `json:"payer_vpa"`
	PayeeVPA        string          `json:"payee_vpa"`
	BankRRN         string          `json:"bank_rrn,omitempty"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	ChargeBreakdown *charges.Result `json:"charge_breakdown,omitempty"`
}

type DailySummary struct {
	VPA         string      `json:"vpa"`
	Date        string      `json:"date"`
	TotalAmount money.Money `json:"total_amount"`
	Count       int64       `json:"count"`
}

type TransferStats struct {
	Total    int64                  `json:"total"`
	ByStatus map[types.Status]int64 `json:"by_status"`
}

// ChargeQuote is a fee preview that does not create a transaction.
type ChargeQuote struct {
	charges.Result
	PayerVPA string `json:"payer_vpa,omitempty"`
	PayeeVPA string `json:"payee_vpa,omitempty"`
}

type TransferService interface {
	Process(ctx context.Context, req *TransferRequest) (*TransferResult, error)
	Status(ctx context.Context, ref string) (*TransferResult, error)
	History(ctx context.Context, vpa string) ([]*types.Transaction, error)
	DailySummary(ctx context.Context, vpa string, day time.Time) (*DailySummary, error)
	Stats(ctx context.Context) (*TransferStats, error)
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Quote(amount decimal.Decimal, txnType, payerVPA, payeeVPA string) (*ChargeQuote, error)
	IsValidVpa(vpa string) bool
	IsValidAmount(amount *decimal.Decimal) bool
}

type transferService struct {
	db         *gorm.DB
	log        *logger.Logger
	repo       repos.TransactionRepo
	rules      *rules.Rules
	validator  *vpa.Validator
	calculator *charges.Calculator
	refs       *reference.Generator
	events     bus.Bus
	metrics    *observability.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

type TransferServiceOption func(*transferService)

// WithClock overrides the wall clock used for timestamps and day windows.
func WithClock(now func() time.Time) TransferServiceOption {
	return func(s *transferService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *observability.Metrics) TransferServiceOption {
	return func(s *transferService) { s.metrics = m }
}

func NewTransferService(
	db *gorm.DB,
	log *logger.Logger,
	repo repos.TransactionRepo,
	r *rules.Rules,
	refs *reference.Generator,
	events bus.Bus,
	opts ...TransferServiceOption,
) TransferService {
	if r == nil {
		r = rules.Default()
	}
	if refs == nil {
		refs = reference.NewGenerator()
	}
	s := &transferService{
		db:         db,
		log:        log.With("service", "TransferService"),
		repo:       repo,
		rules:      r,
		validator:  vpa.NewValidator(r),
		calculator: charges.NewCalculator(r),
		refs:       refs,
		events:     events,
		tracer:     observability.Tracer(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *transferService) Process(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	ctx, span := s.tracer.Start(ctx, "TransferService.Process")
	defer span.End()
	log := s.log.With(ctxutil.LogFields(ctx)...)

	if err := s.validateRequest(req); err != nil {
		s.metrics.IncRejection(apierr.CodeOf(err))
		span.SetStatus(codes.Error, apierr.CodeOf(err))
		log.Info("Transfer rejected", "code", apierr.CodeOf(err), "error", err)
		return nil, err
	}

	payer := strings.TrimSpace(req.PayerVPA)
	payee := strings.TrimSpace(req.PayeeVPA)
	amount := *req.Amount
	txnType := strings.ToUpper(strings.TrimSpace(req.TransactionType))
	if txnType == "" {
		txnType = s.rules.DefaultType
	}
	interBank := !vpa.IsSameBank(payer, payee)
	fee := s.calculator.Calculate(amount, txnType, interBank)

	breakdown, err := json.Marshal(fee)
	if err != nil {
		return nil, s.internal(span, fmt.Errorf("marshal charge breakdown: %w", err))
	}

	txn := &types.Transaction{
		PayerVPA:        vpa.Normalize(payer),
		PayeeVPA:        vpa.Normalize(payee),
		Amount:          amount,
		Charges:         fee.TotalCharges.Decimal,
		TransactionType: txnType,
		Status:          types.StatusProcessing,
		Remarks:         strings.TrimSpace(req.Remarks),
		ChargeBreakdown: datatypes.JSON(breakdown),
	}
	if err := s.createWithFreshRef(ctx, txn); err != nil {
		return nil, s.internal(span, err)
	}
	span.SetAttributes(
		attribute.String("upi.transaction_ref", txn.TransactionRef),
		attribute.String("upi.transaction_type", txnType),
		attribute.Bool("upi.inter_bank", interBank),
	)
	log.Info("Transfer accepted", "transaction_ref", txn.TransactionRef, "payer_vpa", txn.PayerVPA, "payee_vpa", txn.PayeeVPA, "amount", amount.String())

	s.settle(txn)
	if err := s.repo.Update(ctx, nil, txn); err != nil {
		return nil, s.internal(span, fmt.Errorf("update transaction %s: %w", txn.TransactionRef, err))
	}
	log.Info("Transfer completed", "transaction_ref", txn.TransactionRef, "status", txn.Status)

	s.metrics.ObserveTransfer(string(txn.Status), txnType, amount.InexactFloat64(), fee.TotalCharges.InexactFloat64())
	s.publish(ctx, txn)
	span.SetAttributes(attribute.String("upi.status", string(txn.Status)))

	res := s.toResult(txn)
	res.Amount = money.Of(amount)
	res.TotalAmount = fee.NetAmount
	res.PayerVPA = payer
	res.PayeeVPA = payee
	res.ChargeBreakdown = &fee
	return res, nil
}

// validateRequest runs the pipeline checks in order and returns the first failure.
func (s *transferService) validateRequest(req *TransferRequest) error {
	if req == nil {
		return apierr.Payment(apierr.CodeInvalidRequest, "Transfer request cannot be null")
	}
	if !s.IsValidVpa(req.PayerVPA) {
		return apierr.Payment(apierr.CodeInvalidPayerVPA, "Invalid payer VPA: "+req.PayerVPA)
	}
	if !s.IsValidVpa(req.PayeeVPA) {
		return apierr.Payment(apierr.CodeInvalidPayeeVPA, "Invalid payee VPA: "+req.PayeeVPA)
	}
	if !vpa.AreDifferent(req.PayerVPA, req.PayeeVPA) {
		return apierr.Payment(apierr.CodeSameVPA, "Payer and payee cannot be the same")
	}
	if !s.IsValidAmount(req.Amount) {
		return apierr.Payment(apierr.CodeInvalidAmount, fmt.Sprintf(
			"Amount must be between ₹%s and ₹%s",
			s.rules.MinAmount.StringFixed(2),
			s.rules.MaxAmount.StringFixed(2),
		))
	}
	if !req.Amount.Equal(req.Amount.Truncate(2)) {
		return apierr.Validation("Invalid request parameters", apierr.FieldError{
			Field:   "amount",
			Message: "Invalid amount format",
		})
	}
	if utf8.RuneCountInString(req.Remarks) > maxRemarksLength {
		return apierr.Validation("Validation failed", apierr.FieldError{
			Field:   "remarks",
			Message: fmt.Sprintf("Remarks cannot exceed %d characters", maxRemarksLength),
		})
	}
	return nil
}

// createWithFreshRef inserts txn, drawing a new reference when the previous one collided.
func (s *transferService) createWithFreshRef(ctx context.Context, txn *types.Transaction) error {
	var lastErr error
	for attempt := 1; attempt <= refAttempts; attempt++ {
		txn.TransactionRef = s.refs.TransactionRef()
		txn.CreatedAt = s.now().UTC()
		txn.UpdatedAt = txn.CreatedAt
		err := s.repo.Create(ctx, nil, txn)
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return fmt.Errorf("create transaction: %w", err)
		}
		s.log.Warn("Transaction reference collision, regenerating", "transaction_ref", txn.TransactionRef, "attempt", attempt)
		lastErr = err
	}
	return fmt.Errorf("could not allocate a unique transaction reference after %d attempts: %w", refAttempts, lastErr)
}

// settle simulates the bank round trip.
func (s *transferService) settle(txn *types.Transaction) {
	now := s.now().UTC()
	txn.CompletedAt = &now
	if strings.Contains(txn.PayerVPA, FailTrigger) || strings.Contains(txn.PayeeVPA, FailTrigger) {
		txn.Status = types.StatusFailed
		txn.FailureReason = "Transfer declined by bank"
		return
	}
	txn.Status = types.StatusSuccess
	txn.BankRRN = s.refs.BankRRN()
}

func (s *transferService) publish(ctx context.Context, txn *types.Transaction) {
	if s.events == nil {
		return
	}
	evtType := bus.EventTransferCompleted
	switch txn.Status {
	case types.StatusFailed:
		evtType = bus.EventTransferFailed
	case types.StatusTimeout:
		evtType = bus.EventTransferTimedOut
	}
	occurred := s.now().UTC()
	if txn.CompletedAt != nil {
		occurred = *txn.CompletedAt
	}
	evt := bus.TransferEvent{
		Type:           evtType,
		TransactionRef: txn.TransactionRef,
		Status:         string(txn.Status),
		Amount:         txn.Amount,
		Charges:        txn.Charges,
		PayerHandle:    vpa.ExtractBankHandle(txn.PayerVPA),
		PayeeHandle:    vpa.ExtractBankHandle(txn.PayeeVPA),
		FailureReason:  txn.FailureReason,
		OccurredAt:     occurred,
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.metrics.IncPublishFailure()
		s.log.Warn("Failed to publish transfer event", "transaction_ref", txn.TransactionRef, "type", evtType, "error", err)
	}
}

func (s *transferService) Status(ctx context.Context, ref string) (*TransferResult, error) {
	ctx, span := s.tracer.Start(ctx, "TransferService.Status")
	defer span.End()

	ref = strings.TrimSpace(ref)
	txn, err := s.repo.GetByRef(ctx, nil, ref)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, apierr.CodeTxnNotFound)
		return nil, apierr.Payment(apierr.CodeTxnNotFound, "Transaction not found: "+ref)
	}
	if err != nil {
		return nil, s.internal(span, fmt.Errorf("get transaction %s: %w", ref, err))
	}
	res := s.toResult(txn)
	if breakdown := decodeBreakdown(txn.ChargeBreakdown); breakdown != nil {
		res.ChargeBreakdown = breakdown
	}
	return res, nil
}

func (s *transferService) toResult(txn *types.Transaction) *TransferResult {
	ts := txn.CreatedAt
	if txn.CompletedAt != nil {
		ts = *txn.CompletedAt
	}
	return &TransferResult{
		TransactionRef: txn.TransactionRef,
		Status:         txn.Status,
		Message:        txn.Status.Message(),
		Timestamp:      ts,
		Amount:         money.Of(txn.Amount),
		Charges:        money.Of(txn.Charges),
		TotalAmount:    money.Of(txn.Amount.Add(txn.Charges)),
		PayerVPA:       txn.PayerVPA,
		PayeeVPA:       txn.PayeeVPA,
		BankRRN:        txn.BankRRN,
		FailureReason:  txn.FailureReason,
	}
}

func decodeBreakdown(raw datatypes.JSON) *charges.Result {
	if len(raw) == 0 {
		return nil
	}
	var out charges.Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}

func (s *transferService) History(ctx context.Context, payer string) ([]*types.Transaction, error) {
	txns, err := s.repo.ListRecentByPayer(ctx, nil, vpa.Normalize(payer), historyLimit)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeInternal, fmt.Errorf("list history: %w", err))
	}
	return txns, nil
}

// DailySummary totals successful outgoing transfers for payer on the UTC calendar day containing day.
func (s *transferService) DailySummary(ctx context.Context, payer string, day time.Time) (*DailySummary, error) {
	if day.IsZero() {
		day = s.now()
	}
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	normalized := vpa.Normalize(payer)

	total, err := s.repo.SumSuccessfulByPayerBetween(ctx, nil, normalized, start, end)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeInternal, fmt.Errorf("sum daily total: %w", err))
	}
	count, err := s.repo.CountSuccessfulByPayerBetween(ctx, nil, normalized, start, end)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeInternal, fmt.Errorf("count daily transfers: %w", err))
	}
	return &DailySummary{
		VPA:         normalized,
		Date:        start.Format("2006-01-02"),
		TotalAmount: money.Of(total),
		Count:       count,
	}, nil
}

func (s *transferService) Stats(ctx context.Context) (*TransferStats, error) {
	rows, err := s.repo.CountByStatus(ctx, nil)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, apierr.CodeInternal, fmt.Errorf("count by status: %w", err))
	}
	out := &TransferStats{ByStatus: make(map[types.Status]int64, len(types.AllStatuses))}
	for _, st := range types.AllStatuses {
		out.ByStatus[st] = 0
	}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.Count
		out.Total += row.Count
	}
	return out, nil
}

// ExpireStale moves PENDING and PROCESSING transfers older than olderThan to TIMEOUT.
func (s *transferService) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "TransferService.ExpireStale")
	defer span.End()

	now := s.now().UTC()
	var expired []*types.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale, err := s.repo.ListStale(ctx, tx, now.Add(-olderThan))
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(stale))
		for _, txn := range stale {
			ids = append(ids, txn.ID)
		}
		updated, err := s.repo.MarkTimedOut(ctx, tx, ids, timeoutReason, now)
		if err != nil {
			return err
		}
		changed := make(map[uuid.UUID]struct{}, len(updated))
		for _, id := range updated {
			changed[id] = struct{}{}
		}
		for _, txn := range stale {
			if _, ok := changed[txn.ID]; ok {
				expired = append(expired, txn)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "expire stale")
		return 0, fmt.Errorf("expire stale transactions: %w", err)
	}
	n := int64(len(expired))
	span.SetAttributes(attribute.Int64("upi.expired", n))
	if n == 0 {
		return 0, nil
	}

	s.log.Info("Expired stale transfers", "count", n, "older_than", olderThan.String())
	for _, txn := range expired {
		txn.Status = types.StatusTimeout
		txn.FailureReason = timeoutReason
		txn.CompletedAt = &now
		s.metrics.ObserveTransfer(string(txn.Status), txn.TransactionType, txn.Amount.InexactFloat64(), 0)
		s.publish(ctx, txn)
	}
	return n, nil
}

func (s *transferService) Quote(amount decimal.Decimal, txnType, payerVPA, payeeVPA string) (*ChargeQuote, error) {
	if !amount.IsPositive() {
		return nil, apierr.Payment(apierr.CodeInvalidAmount, "Amount must be greater than zero")
	}
	payerVPA = strings.TrimSpace(payerVPA)
	payeeVPA = strings.TrimSpace(payeeVPA)
	interBank := payerVPA != "" && payeeVPA != "" && !vpa.IsSameBank(payerVPA, payeeVPA)
	resolved := strings.ToUpper(strings.TrimSpace(txnType))
	if resolved == "" {
		resolved = s.rules.DefaultType
	}
	return &ChargeQuote{
		Result:   s.calculator.Calculate(amount, resolved, interBank),
		PayerVPA: payerVPA,
		PayeeVPA: payeeVPA,
	}, nil
}

// IsValidVpa checks format, the bank-handle allow-list and blocked patterns.
func (s *transferService) IsValidVpa(v string) bool {
	return s.validator.HasValidBankHandle(v) && !s.validator.ContainsBlockedPattern(v)
}

func (s *transferService) IsValidAmount(amount *decimal.Decimal) bool {
	if amount == nil {
		return false
	}
	return amount.GreaterThanOrEqual(s.rules.MinAmount) && amount.LessThanOrEqual(s.rules.MaxAmount)
}

func (s *transferService) internal(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.Error("Transfer service failure", "error", err)
	return apierr.New(http.StatusInternalServerError, apierr.CodeInternal, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
