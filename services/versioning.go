package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/utils"
)

// CartItemInput is one line of the replacement cart.
type CartItemInput struct {
	ItemCode string          `json:"itemcode" binding:"required"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// AmendInput carries the field-level changes of one amendment. Nil fields are
// left unchanged on the transaction.
type AmendInput struct {
	PatientHN          *string          `json:"patient_hn"`
	FName              *string          `json:"fname"`
	LName              *string          `json:"lname"`
	Gender             *string          `json:"gender"`
	PatientAge         *int             `json:"patient_age"`
	Type               *string          `json:"type"`
	DoctorID           *string          `json:"doctor_id"`
	ConsultantID       *string          `json:"consultant_id"`
	Total              *decimal.Decimal `json:"total"`
	DepositAmount      *decimal.Decimal `json:"deposit_amount"`
	OutstandingBalance *decimal.Decimal `json:"outstanding_balance"`
	PaymentMethod      *string          `json:"payment_method"`
	ReviewStatus       *string          `json:"review_status"`
	Comment            *string          `json:"comment"`
	ChangeReason       string           `json:"change_reason"`

	ConsultantSignatureB64 string `json:"consultant_signature_b64"`
	PatientSignatureB64    string `json:"patient_signature_b64"`

	CartItems []CartItemInput `json:"cartItems"`
}

// VersionRecord is one row of a transaction's amendment history.
type VersionRecord struct {
	VersionID     uint            `json:"version_id"`
	TransactionID string          `json:"transaction_id"`
	VersionNumber int             `json:"version_number"`
	CreatedAt     string          `json:"created_at"`
	CreatedBy     string          `json:"created_by"`
	ChangeReason  string          `json:"change_reason"`
	Snapshot      json.RawMessage `json:"snapshot"`
}

// Versioning is the transaction amendment engine: every edit captures an
// immutable snapshot of the prior state before mutating the row in place.
type Versioning struct{}

func NewVersioning() *Versioning {
	return &Versioning{}
}

var transactionPreloads = []string{"Items", "Items.Item", "Doctor", "Consultant", "CreatedByUser"}

func loadTransaction(tx *gorm.DB, id string) (*models.Transaction, error) {
	q := tx
	for _, p := range transactionPreloads {
		q = q.Preload(p)
	}
	var txn models.Transaction
	if err := q.First(&txn, "transaction_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("Transaction not found.")
		}
		return nil, Storagef(err, "load transaction")
	}
	return &txn, nil
}

// Amend applies one permission-gated amendment as a single unit of work:
// snapshot the pre-edit state, allocate the next version number, mutate the
// transaction, replace its line items, append the audit row, commit.
func (v *Versioning) Amend(db *gorm.DB, transactionID string, input AmendInput, editor models.User) (*models.TransactionDetail, error) {
	if !models.IsPrivileged(editor.RoleName()) {
		return nil, Deniedf("Permission denied.")
	}
	for _, line := range input.CartItems {
		if line.ItemCode == "" {
			return nil, Invalidf("Cart item is missing an item code.")
		}
		if line.Quantity < 1 {
			return nil, Invalidf("Cart item quantity must be a positive integer.")
		}
		if line.Price.IsNegative() {
			return nil, Invalidf("Cart item price must not be negative.")
		}
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, Storagef(tx.Error, "begin amendment")
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := v.amendInTx(tx, transactionID, input, editor); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, Conflictf("Concurrent edit detected, please retry.")
		}
		return nil, Storagef(err, "commit amendment")
	}

	updated, err := loadTransaction(db, transactionID)
	if err != nil {
		return nil, err
	}
	result := updated.Detail()
	return &result, nil
}

func (v *Versioning) amendInTx(tx *gorm.DB, transactionID string, input AmendInput, editor models.User) error {
	// Serialize concurrent amendments on the same row. The unique index on
	// (transaction_id, version_number) backstops dialects without row locks
	// (sqlite in tests).
	locked := tx
	if tx.Dialector.Name() == "postgres" {
		locked = tx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "transactions"}})
	}
	txn, err := loadTransaction(locked, transactionID)
	if err != nil {
		return err
	}

	var latest int
	err = tx.Model(&models.TransactionVersion{}).
		Where("transaction_id = ?", transactionID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&latest).Error
	if err != nil {
		return Storagef(err, "read latest version")
	}

	// Snapshot is the state as it exists right now, before any edit.
	snapshot, err := json.Marshal(txn.Detail())
	if err != nil {
		return Invalidf("Transaction state is not serializable: %v", err)
	}

	reason := input.ChangeReason
	if reason == "" {
		reason = "No reason provided."
	}
	version := models.TransactionVersion{
		TransactionID:   transactionID,
		VersionNumber:   latest + 1,
		Snapshot:        snapshot,
		ChangeReason:    reason,
		CreatedByUserID: editor.UserID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := tx.Create(&version).Error; err != nil {
		if IsDuplicateKey(err) {
			return Conflictf("Concurrent edit detected, please retry.")
		}
		return Storagef(err, "write version snapshot")
	}

	applyChanges(txn, input)

	// Signature decode failure is non-fatal: keep the previous file and log.
	if input.ConsultantSignatureB64 != "" {
		if filename, err := utils.SaveSignatureFile(input.ConsultantSignatureB64, transactionID); err != nil {
			slog.Error("failed to store consultant signature", "transaction_id", transactionID, "err", err)
		} else if filename != "" {
			txn.ConsultantSignatureFilename = filename
		}
	}
	if input.PatientSignatureB64 != "" {
		if filename, err := utils.SaveSignatureFile(input.PatientSignatureB64, transactionID); err != nil {
			slog.Error("failed to store patient signature", "transaction_id", transactionID, "err", err)
		} else if filename != "" {
			txn.PatientSignatureFilename = filename
		}
	}

	// The line-item list is replaced wholesale on every amendment: the prior
	// cart lives on in the snapshot, and an amendment that supplies no cart
	// leaves the transaction with none.
	if err := tx.Where("transaction_id = ?", transactionID).Delete(&models.TransactionItem{}).Error; err != nil {
		return Storagef(err, "clear line items")
	}
	for _, line := range input.CartItems {
		item := models.TransactionItem{
			TransactionID: transactionID,
			ItemCode:      line.ItemCode,
			Quantity:      line.Quantity,
			PricePerUnit:  line.Price,
		}
		if err := tx.Create(&item).Error; err != nil {
			return Storagef(err, "write line item")
		}
	}

	txn.UpdatedAt = time.Now().UTC()
	txn.Items = nil // items were rewritten above; don't let Save resurrect the old ones
	if err := tx.Omit("Items", "Doctor", "Consultant", "CreatedByUser").Save(txn).Error; err != nil {
		return Storagef(err, "update transaction")
	}

	editorID := editor.UserID
	action := fmt.Sprintf("Updated transaction '%s'. Reason: %s", transactionID, reason)
	if err := AddLogEntry(tx, &editorID, action); err != nil {
		return Storagef(err, "write audit entry")
	}
	return nil
}

func applyChanges(txn *models.Transaction, input AmendInput) {
	if input.PatientHN != nil {
		txn.HN = *input.PatientHN
	}
	if input.FName != nil {
		txn.PatientFName = *input.FName
	}
	if input.LName != nil {
		txn.PatientLName = *input.LName
	}
	if input.Gender != nil {
		txn.PatientGender = *input.Gender
	}
	if input.PatientAge != nil {
		txn.PatientAge = input.PatientAge
	}
	if input.Type != nil {
		txn.PatientType = *input.Type
	}
	if input.DoctorID != nil {
		txn.DoctorID = nilIfEmpty(*input.DoctorID)
	}
	if input.ConsultantID != nil {
		txn.ConsultantID = nilIfEmpty(*input.ConsultantID)
	}
	if input.Total != nil {
		txn.TotalAmount = *input.Total
	}
	if input.DepositAmount != nil {
		txn.DepositAmount = *input.DepositAmount
	}
	if input.OutstandingBalance != nil {
		txn.OutstandingBalance = *input.OutstandingBalance
	}
	if input.PaymentMethod != nil {
		txn.PaymentMethod = *input.PaymentMethod
	}
	if input.ReviewStatus != nil {
		txn.ReviewStatus = *input.ReviewStatus
	}
	if input.Comment != nil {
		txn.Comment = *input.Comment
	}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Versions returns a transaction's amendment history, newest first. An empty
// history is not an error.
func (v *Versioning) Versions(db *gorm.DB, transactionID string, caller models.User) ([]VersionRecord, error) {
	if !models.IsPrivileged(caller.RoleName()) {
		return nil, Deniedf("Permission denied.")
	}

	var versions []models.TransactionVersion
	err := db.Preload("CreatedByUser").
		Where("transaction_id = ?", transactionID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, Storagef(err, "load version history")
	}

	loc := config.DisplayLocation()
	records := make([]VersionRecord, 0, len(versions))
	for _, ver := range versions {
		createdBy := "N/A"
		if ver.CreatedByUser != nil {
			createdBy = ver.CreatedByUser.Username
		}
		records = append(records, VersionRecord{
			VersionID:     ver.VersionID,
			TransactionID: ver.TransactionID,
			VersionNumber: ver.VersionNumber,
			CreatedAt:     ver.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			CreatedBy:     createdBy,
			ChangeReason:  ver.ChangeReason,
			Snapshot:      json.RawMessage(ver.Snapshot),
		})
	}
	return records, nil
}
