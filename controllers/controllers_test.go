package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/routes"
	"medibill-backend/utils"
)

// setupApp wires a throwaway sqlite database into the global handle and
// builds the full router, so tests go through the same route table, token
// middleware and permission checks production serves.
func setupApp(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SIGNATURE_DIR", t.TempDir())

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
	config.DB = db

	return db, routes.SetupRouter()
}

func seedAppUser(t *testing.T, db *gorm.DB, username, roleName string) models.User {
	t.Helper()
	var role models.Role
	if err := db.Where("role_name = ?", roleName).First(&role).Error; err != nil {
		role = models.Role{RoleName: roleName}
		require.NoError(t, db.Create(&role).Error)
	}

	user := models.User{Username: username, FullName: username, RoleID: role.RoleID, IsActive: true}
	require.NoError(t, user.SetPassword("secret-password"))
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Preload("Role").First(&user, user.UserID).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.UserID, user.RoleName())
	require.NoError(t, err)
	return token
}

func seedAppTransaction(t *testing.T, db *gorm.DB, id string) models.Transaction {
	t.Helper()
	txn := models.Transaction{
		TransactionID:      id,
		HN:                 "HN-200",
		PatientFName:       "Siriporn",
		PatientLName:       "Chai",
		PatientGender:      "female",
		TransactionDate:    time.Now().UTC(),
		PatientType:        "OPD",
		TotalAmount:        decimal.RequireFromString("750.00"),
		DepositAmount:      decimal.Zero,
		OutstandingBalance: decimal.RequireFromString("750.00"),
		PaymentMethod:      "cash",
		ReviewStatus:       "pending",
	}
	require.NoError(t, db.Create(&txn).Error)
	return txn
}

// doJSON issues one request against the router. A nil body sends no payload;
// an empty token sends no Authorization header.
func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
