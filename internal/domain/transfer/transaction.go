package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusInitiated  Status = "INITIATED"
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
	StatusReversed   Status = "REVERSED"
	StatusTimeout    Status = "TIMEOUT"
	StatusCancelled  Status = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusInitiated,
	StatusPending,
	StatusProcessing,
	StatusSuccess,
	StatusFailed,
	StatusReversed,
	StatusTimeout,
	StatusCancelled,
}

// Message is the human readable description returned by status lookups.
func (s Status) Message() string {
	switch s {
	case StatusSuccess:
		return "Transfer completed successfully"
	case StatusFailed:
		return "Transfer failed"
	case StatusPending:
		return "Transfer is pending"
	case StatusProcessing:
		return "Transfer is being processed"
	case StatusReversed:
		return "Transfer has been reversed"
	case StatusTimeout:
		return "Transfer timed out"
	case StatusCancelled:
		return "Transfer was cancelled"
	case StatusInitiated:
		return "Transfer has been initiated"
	default:
		return "Unknown status"
	}
}

type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionRef  string          `gorm:"column:transaction_ref;size:30;uniqueIndex;not null" json:"transaction_ref"`
	PayerVPA        string          `gorm:"column:payer_vpa;size:100;index;not null" json:"payer_vpa"`
	PayeeVPA        string          `gorm:"column:payee_vpa;size:100;not null" json:"payee_vpa"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Charges         decimal.Decimal `gorm:"column:charges;type:numeric(10,2)" json:"charges"`
	TransactionType string          `gorm:"column:transaction_type;size:20" json:"transaction_type"`
	Status          Status          `gorm:"column:status;size:20;index;not null" json:"status"`
	Remarks         string          `gorm:"column:remarks;size:500" json:"remarks,omitempty"`
	FailureReason   string          `gorm:"column:failure_reason;size:500" json:"failure_reason,omitempty"`
	BankRRN         string          `gorm:"column:bank_rrn;size:50" json:"bank_rrn,omitempty"`
	ChargeBreakdown datatypes.JSON  `gorm:"column:charge_breakdown" json:"charge_breakdown,omitempty"`

	CreatedAt   time.Time  `gorm:"column:created_at;index;not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Version     int64      `gorm:"column:version;not null;default:0" json:"-"`
}

func (Transaction) TableName() string { return "transactions" }

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusInitiated
	}
	return nil
}
