package services

import (
	"time"

	"gorm.io/gorm"

	"medibill-backend/models"
)

// AddLogEntry appends one audit row inside the caller's unit of work.
func AddLogEntry(tx *gorm.DB, userID *uint, action string) error {
	entry := models.LogEntry{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    action,
	}
	return tx.Create(&entry).Error
}
