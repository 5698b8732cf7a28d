package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"medibill-backend/models"
)

// setupTestDB opens a throwaway sqlite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Staff{},
		&models.Item{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.TransactionVersion{},
		&models.LogEntry{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, roleName string) models.User {
	t.Helper()
	var role models.Role
	err := db.Where("role_name = ?", roleName).First(&role).Error
	if err != nil {
		role = models.Role{RoleName: roleName}
		require.NoError(t, db.Create(&role).Error)
	}

	user := models.User{Username: username, FullName: username, RoleID: role.RoleID, IsActive: true}
	require.NoError(t, user.SetPassword("secret-password"))
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Preload("Role").First(&user, user.UserID).Error)
	return user
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	items := []models.Item{
		{ItemCode: "MED-001", NameTH: "Paracetamol", PriceOPD: decimal.RequireFromString("150.00")},
		{ItemCode: "MED-002", NameTH: "Consultation", PriceOPD: decimal.RequireFromString("350.00")},
	}
	for i := range items {
		require.NoError(t, db.Create(&items[i]).Error)
	}
	staff := []models.Staff{
		{StaffID: "DOC-1", NameTH: "Dr. Somchai", StaffRole: "doctor"},
		{StaffID: "CON-1", NameTH: "Khun Malee", StaffRole: "consultant"},
	}
	for i := range staff {
		require.NoError(t, db.Create(&staff[i]).Error)
	}
}

// seedTransaction creates T with two line items totaling 500.00, paid cash.
func seedTransaction(t *testing.T, db *gorm.DB, id string, creator models.User) models.Transaction {
	t.Helper()
	doctorID := "DOC-1"
	creatorID := creator.UserID
	txn := models.Transaction{
		TransactionID:      id,
		HN:                 "HN-100",
		PatientFName:       "Anan",
		PatientLName:       "Srisuk",
		PatientGender:      "male",
		TransactionDate:    time.Now().UTC(),
		PatientType:        "OPD",
		TotalAmount:        decimal.RequireFromString("500.00"),
		DepositAmount:      decimal.Zero,
		OutstandingBalance: decimal.RequireFromString("500.00"),
		PaymentMethod:      "cash",
		ReviewStatus:       "pending",
		DoctorID:           &doctorID,
		CreatedByUserID:    &creatorID,
	}
	require.NoError(t, db.Create(&txn).Error)

	lines := []models.TransactionItem{
		{TransactionID: id, ItemCode: "MED-001", Quantity: 1, PricePerUnit: decimal.RequireFromString("150.00")},
		{TransactionID: id, ItemCode: "MED-002", Quantity: 1, PricePerUnit: decimal.RequireFromString("350.00")},
	}
	for i := range lines {
		require.NoError(t, db.Create(&lines[i]).Error)
	}
	return txn
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
