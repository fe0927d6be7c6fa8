package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/upi-transfer-backend/internal/domain/transfer"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&transfer.Transaction{},
	)
}
