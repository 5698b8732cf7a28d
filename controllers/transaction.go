// controllers/transaction.go
package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/services"
	"medibill-backend/utils"
)

// TransactionController covers the point-of-sale path and the privileged
// amendment path built on the versioning engine.
type TransactionController struct {
	Versioning *services.Versioning
}

func NewTransactionController(versioning *services.Versioning) *TransactionController {
	return &TransactionController{Versioning: versioning}
}

// SaveTransactionInput is the point-of-sale creation payload.
type SaveTransactionInput struct {
	TransactionID      string                   `json:"transaction_id" binding:"required"`
	PatientHN          string                   `json:"patient_hn"`
	FName              string                   `json:"fname"`
	LName              string                   `json:"lname"`
	Gender             string                   `json:"gender"`
	PatientAge         *int                     `json:"patient_age"`
	Date               time.Time                `json:"date" binding:"required"`
	Type               string                   `json:"type"`
	Total              decimal.Decimal          `json:"total"`
	DepositAmount      decimal.Decimal          `json:"deposit_amount"`
	OutstandingBalance decimal.Decimal          `json:"outstanding_balance"`
	PaymentMethod      string                   `json:"payment_method"`
	ReviewStatus       string                   `json:"review_status"`
	Comment            string                   `json:"comment"`
	DoctorID           string                   `json:"doctor_id"`
	ConsultantID       string                   `json:"consultant_id"`
	CartItems          []services.CartItemInput `json:"cartItems"`

	ConsultantSignatureB64 string `json:"consultant_signature_b64"`
	PatientSignatureB64    string `json:"patient_signature_b64"`
}

// SaveTransaction records a new point-of-sale transaction with its cart and
// optional signatures.
func (ctl *TransactionController) SaveTransaction(c *gin.Context) {
	var input SaveTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid data provided.")
		return
	}

	txn := models.Transaction{
		TransactionID:      input.TransactionID,
		HN:                 input.PatientHN,
		PatientFName:       input.FName,
		PatientLName:       input.LName,
		PatientGender:      input.Gender,
		PatientAge:         input.PatientAge,
		TransactionDate:    input.Date.UTC(),
		PatientType:        input.Type,
		TotalAmount:        input.Total,
		DepositAmount:      input.DepositAmount,
		OutstandingBalance: input.OutstandingBalance,
		PaymentMethod:      input.PaymentMethod,
		ReviewStatus:       input.ReviewStatus,
		Comment:            input.Comment,
	}
	if input.DoctorID != "" {
		txn.DoctorID = &input.DoctorID
	}
	if input.ConsultantID != "" {
		txn.ConsultantID = &input.ConsultantID
	}
	if user, ok := CurrentUser(c); ok {
		userID := user.UserID
		txn.CreatedByUserID = &userID
	}

	// File writes happen outside the DB transaction; a crash in between can
	// orphan a file, which is accepted.
	if input.ConsultantSignatureB64 != "" {
		if filename, err := utils.SaveSignatureFile(input.ConsultantSignatureB64, input.TransactionID); err != nil {
			slog.Error("failed to store consultant signature", "transaction_id", input.TransactionID, "err", err)
		} else {
			txn.ConsultantSignatureFilename = filename
		}
	}
	if input.PatientSignatureB64 != "" {
		if filename, err := utils.SaveSignatureFile(input.PatientSignatureB64, input.TransactionID); err != nil {
			slog.Error("failed to store patient signature", "transaction_id", input.TransactionID, "err", err)
		} else {
			txn.PatientSignatureFilename = filename
		}
	}

	tx := config.DB.Begin()
	if err := tx.Create(&txn).Error; err != nil {
		tx.Rollback()
		if services.IsDuplicateKey(err) {
			utils.RespondWithError(c, http.StatusConflict, "A transaction with this id already exists.")
			return
		}
		respondServiceError(c, services.Storagef(err, "create transaction"))
		return
	}
	for _, line := range input.CartItems {
		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		item := models.TransactionItem{
			TransactionID: txn.TransactionID,
			ItemCode:      line.ItemCode,
			Quantity:      quantity,
			PricePerUnit:  line.Price,
		}
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			respondServiceError(c, services.Storagef(err, "create transaction item"))
			return
		}
	}
	if err := tx.Commit().Error; err != nil {
		respondServiceError(c, services.Storagef(err, "commit transaction"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Transaction saved successfully."})
}

// GetTransaction returns the full detail of one transaction for editing.
func (ctl *TransactionController) GetTransaction(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !models.IsPrivileged(user.RoleName()) {
		utils.RespondWithError(c, http.StatusForbidden, "Permission denied.")
		return
	}

	var txn models.Transaction
	err := config.DB.
		Preload("Items").Preload("Items.Item").
		Preload("Doctor").Preload("Consultant").Preload("CreatedByUser").
		First(&txn, "transaction_id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Transaction not found.")
		} else {
			respondServiceError(c, services.Storagef(err, "load transaction"))
		}
		return
	}

	c.JSON(http.StatusOK, txn.Detail())
}

// UpdateTransaction amends a transaction through the versioning engine.
func (ctl *TransactionController) UpdateTransaction(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var input services.AmendInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid data provided.")
		return
	}

	detail, err := ctl.Versioning.Amend(config.DB, c.Param("id"), input, user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetTransactionVersions returns the amendment history, newest first.
func (ctl *TransactionController) GetTransactionVersions(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	records, err := ctl.Versioning.Versions(config.DB, c.Param("id"), user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetTransactionHistory lists all transactions newest first for the history
// screen.
func (ctl *TransactionController) GetTransactionHistory(c *gin.Context) {
	var txns []models.Transaction
	err := config.DB.
		Preload("Items").Preload("Items.Item").
		Preload("Doctor").Preload("Consultant").Preload("CreatedByUser").
		Order("transaction_date DESC").
		Find(&txns).Error
	if err != nil {
		respondServiceError(c, services.Storagef(err, "fetch transactions"))
		return
	}

	history := make([]models.TransactionDetail, 0, len(txns))
	for i := range txns {
		history = append(history, txns[i].Detail())
	}
	c.JSON(http.StatusOK, history)
}

// GetInitialData serves the item catalog and staff list the point-of-sale
// screen needs on load.
func (ctl *TransactionController) GetInitialData(c *gin.Context) {
	var items []models.Item
	if err := config.DB.Find(&items).Error; err != nil {
		respondServiceError(c, services.Storagef(err, "fetch items"))
		return
	}
	var staff []models.Staff
	if err := config.DB.Find(&staff).Error; err != nil {
		respondServiceError(c, services.Storagef(err, "fetch staff"))
		return
	}

	products := make([]any, 0, len(items))
	for i := range items {
		products = append(products, items[i].PickerRow())
	}
	users := make([]any, 0, len(staff))
	for i := range staff {
		users = append(users, staff[i].PickerRow())
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "users": users})
}
