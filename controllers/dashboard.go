package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/services"
	"medibill-backend/utils"
)

// GetDashboardOverview summarizes billing activity: today's and this month's
// totals, the outstanding balance across all transactions, the review queue,
// and the most recent transactions.
func GetDashboardOverview(c *gin.Context) {
	_, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	loc := config.DisplayLocation()
	dayStart, dayEnd := utils.DayWindow(time.Now(), loc)
	monthAnchor := time.Now().In(loc)
	monthStart := time.Date(monthAnchor.Year(), monthAnchor.Month(), 1, 0, 0, 0, 0, loc).UTC()

	sumBetween := func(start, end time.Time) (decimal.Decimal, int64, error) {
		var totals []decimal.Decimal
		q := config.DB.Model(&models.Transaction{}).
			Where("transaction_date >= ? AND transaction_date < ?", start, end)
		if err := q.Pluck("total_amount", &totals).Error; err != nil {
			return decimal.Zero, 0, err
		}
		sum := decimal.Zero
		for _, d := range totals {
			sum = sum.Add(d)
		}
		return sum, int64(len(totals)), nil
	}

	todayTotal, todayCount, err := sumBetween(dayStart, dayEnd)
	if err != nil {
		respondServiceError(c, services.Storagef(err, "sum today"))
		return
	}
	monthTotal, monthCount, err := sumBetween(monthStart, dayEnd)
	if err != nil {
		respondServiceError(c, services.Storagef(err, "sum month"))
		return
	}

	var outstanding []decimal.Decimal
	if err := config.DB.Model(&models.Transaction{}).
		Where("outstanding_balance > 0").
		Pluck("outstanding_balance", &outstanding).Error; err != nil {
		respondServiceError(c, services.Storagef(err, "sum outstanding"))
		return
	}
	outstandingTotal := decimal.Zero
	for _, d := range outstanding {
		outstandingTotal = outstandingTotal.Add(d)
	}

	var pendingReview int64
	if err := config.DB.Model(&models.Transaction{}).
		Where("review_status = ?", "pending").
		Count(&pendingReview).Error; err != nil {
		respondServiceError(c, services.Storagef(err, "count pending review"))
		return
	}

	var recent []models.Transaction
	if err := config.DB.
		Preload("Doctor").Preload("Consultant").Preload("CreatedByUser").
		Order("transaction_date DESC").
		Limit(5).
		Find(&recent).Error; err != nil {
		respondServiceError(c, services.Storagef(err, "fetch recent transactions"))
		return
	}
	recentRows := make([]any, 0, len(recent))
	for i := range recent {
		recentRows = append(recentRows, recent[i].CrudRow())
	}

	c.JSON(http.StatusOK, gin.H{
		"today": gin.H{
			"transactions": todayCount,
			"total":        todayTotal,
		},
		"month": gin.H{
			"transactions": monthCount,
			"total":        monthTotal,
		},
		"outstandingBalance": outstandingTotal,
		"pendingReview":      pendingReview,
		"recentTransactions": recentRows,
	})
}
