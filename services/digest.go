package services

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/utils"
)

// DigestService writes a nightly audit summary of the day's billing into the
// log table.
type DigestService struct {
	db *gorm.DB
}

func NewDigestService(db *gorm.DB) *DigestService {
	return &DigestService{db: db}
}

func (s *DigestService) StartScheduler() {
	schedule := os.Getenv("DIGEST_SCHEDULE")
	if schedule == "" {
		schedule = "0 20 * * *"
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, s.WriteDailyDigest); err != nil {
		slog.Error("invalid DIGEST_SCHEDULE, digest disabled", "schedule", schedule, "err", err)
		return
	}
	c.Start()
	slog.Info("audit digest scheduler started", "schedule", schedule)
}

// WriteDailyDigest summarizes today's transactions (display-zone day) as one
// system LogEntry.
func (s *DigestService) WriteDailyDigest() {
	start, end := utils.DayWindow(time.Now(), config.DisplayLocation())

	var count int64
	if err := s.db.Model(&models.Transaction{}).
		Where("transaction_date >= ? AND transaction_date < ?", start, end).
		Count(&count).Error; err != nil {
		slog.Error("digest: count transactions", "err", err)
		return
	}

	var totals []decimal.Decimal
	if err := s.db.Model(&models.Transaction{}).
		Where("transaction_date >= ? AND transaction_date < ?", start, end).
		Pluck("total_amount", &totals).Error; err != nil {
		slog.Error("digest: sum transactions", "err", err)
		return
	}
	sum := decimal.Zero
	for _, d := range totals {
		sum = sum.Add(d)
	}

	action := fmt.Sprintf("Daily digest: %d transaction(s) totaling %s.", count, sum.StringFixed(2))
	if err := AddLogEntry(s.db, nil, action); err != nil {
		slog.Error("digest: write log entry", "err", err)
		return
	}
	slog.Info("daily digest written", "transactions", count, "total", sum.StringFixed(2))
}
