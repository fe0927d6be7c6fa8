package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/upi-transfer-backend/internal/domain/transfer"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

// ErrStaleVersion is returned by Update when the row changed since it was read.
var ErrStaleVersion = errors.New("transaction version conflict")

type StatusCount struct {
	Status types.Status `json:"status"`
	Count  int64        `json:"count"`
}

type TransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, txn *types.Transaction) error
	Update(ctx context.Context, tx *gorm.DB, txn *types.Transaction) error
	GetByRef(ctx context.Context, tx *gorm.DB, ref string) (*types.Transaction, error)
	ListRecentByPayer(ctx context.Context, tx *gorm.DB, payerVPA string, limit int) ([]*types.Transaction, error)
	SumSuccessfulByPayerBetween(ctx context.Context, tx *gorm.DB, payerVPA string, start, end time.Time) (decimal.Decimal, error)
	CountSuccessfulByPayerBetween(ctx context.Context, tx *gorm.DB, payerVPA string, start, end time.Time) (int64, error)
	CountByStatus(ctx context.Context, tx *gorm.DB) ([]StatusCount, error)
	ListStale(ctx context.Context, tx *gorm.DB, threshold time.Time) ([]*types.Transaction, error)
	MarkTimedOut(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error)
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	repoLog := baseLog.With("repo", "TransactionRepo")
	return &transactionRepo{db: db, log: repoLog}
}

func (r *transactionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *transactionRepo) Create(ctx context.Context, tx *gorm.DB, txn *types.Transaction) error {
	if txn == nil {
		return errors.New("nil transaction")
	}
	return r.conn(tx).WithContext(ctx).Create(txn).Error
}

// Update writes the mutable columns guarded by the row version.
func (r *transactionRepo) Update(ctx context.Context, tx *gorm.DB, txn *types.Transaction) error {
	if txn == nil {
		return errors.New("nil transaction")
	}
	now := time.Now().UTC()
	res := r.conn(tx).WithContext(ctx).
		Model(&types.Transaction{}).
		Where("id = ? AND version = ?", txn.ID, txn.Version).
		Updates(map[string]any{
			"status":           txn.Status,
			"failure_reason":   txn.FailureReason,
			"bank_rrn":         txn.BankRRN,
			"completed_at":     txn.CompletedAt,
			"charges":          txn.Charges,
			"charge_breakdown": txn.ChargeBreakdown,
			"updated_at":       now,
			"version":          txn.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	txn.Version++
	txn.UpdatedAt = now
	return nil
}

func (r *transactionRepo) GetByRef(ctx context.Context, tx *gorm.DB, ref string) (*types.Transaction, error) {
	var out types.Transaction
	if err := r.conn(tx).WithContext(ctx).
		Where("transaction_ref = ?", ref).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *transactionRepo) ListRecentByPayer(ctx context.Context, tx *gorm.DB, payerVPA string, limit int) ([]*types.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	results := []*types.Transaction{}
	if err := r.conn(tx).WithContext(ctx).
		Where("payer_vpa = ?", payerVPA).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *transactionRepo) SumSuccessfulByPayerBetween(ctx context.Context, tx *gorm.DB, payerVPA string, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	row := r.conn(tx).WithContext(ctx).
		Model(&types.Transaction{}).
		Select("SUM(amount)").
		Where("payer_vpa = ? AND status = ? AND created_at BETWEEN ? AND ?", payerVPA, types.StatusSuccess, start, end).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *transactionRepo) CountSuccessfulByPayerBetween(ctx context.Context, tx *gorm.DB, payerVPA string, start, end time.Time) (int64, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.Transaction{}).
		Where("payer_vpa = ? AND status = ? AND created_at BETWEEN ? AND ?", payerVPA, types.StatusSuccess, start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *transactionRepo) CountByStatus(ctx context.Context, tx *gorm.DB) ([]StatusCount, error) {
	rows := []StatusCount{}
	if err := r.conn(tx).WithContext(ctx).
		Model(&types.Transaction{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *transactionRepo) ListStale(ctx context.Context, tx *gorm.DB, threshold time.Time) ([]*types.Transaction, error) {
	results := []*types.Transaction{}
	if err := r.conn(tx).WithContext(ctx).
		Where("status IN ? AND created_at < ?", []types.Status{types.StatusPending, types.StatusProcessing}, threshold).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkTimedOut moves the still-open rows among ids to TIMEOUT and returns the IDs it changed.
// Rows that settled since they were listed are left alone and omitted from the result.
func (r *transactionRepo) MarkTimedOut(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, reason string, at time.Time) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	updated := []uuid.UUID{}
	err := r.conn(tx).WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Model(&types.Transaction{}).
			Where("id IN ? AND status IN ?", ids, []types.Status{types.StatusPending, types.StatusProcessing}).
			Updates(map[string]any{
				"status":         types.StatusTimeout,
				"failure_reason": reason,
				"completed_at":   at,
				"updated_at":     at,
				"version":        gorm.Expr("version + 1"),
			}).Error; err != nil {
			return err
		}
		return db.Model(&types.Transaction{}).
			Where("id IN ? AND status = ? AND updated_at = ?", ids, types.StatusTimeout, at).
			Pluck("id", &updated).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
