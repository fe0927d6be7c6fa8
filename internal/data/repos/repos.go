package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/upi-transfer-backend/internal/data/repos/transfer"
	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

type TransactionRepo = transfer.TransactionRepo

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return transfer.NewTransactionRepo(db, baseLog)
}
