package bus

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTransferCompleted = "transfer.completed"
	EventTransferFailed    = "transfer.failed"
	EventTransferTimedOut  = "transfer.timed_out"
)

// TransferEvent is published whenever a transfer reaches a final status.
type TransferEvent struct {
	Type           string          `json:"type"`
	TransactionRef string          `json:"transaction_ref"`
	Status         string          `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	Charges        decimal.Decimal `json:"charges"`
	PayerHandle    string          `json:"payer_handle,omitempty"`
	PayeeHandle    string          `json:"payee_handle,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

type Bus interface {
	Publish(ctx context.Context, evt TransferEvent) error
	StartForwarder(ctx context.Context, onEvent func(evt TransferEvent)) error
	Close() error
}
