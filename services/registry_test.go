package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibill-backend/models"
)

func TestRegistryUnknownKind(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("nonsense")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRegistryPermissionTable(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		kind      string
		role      string
		canRead   bool
		canWrite  bool
		canDelete bool
	}{
		{"items", models.RoleUser, true, false, false},
		{"items", models.RoleAdmin, true, true, true},
		{"items", models.RoleSuperAdmin, true, true, true},
		{"staff", models.RoleAdmin, true, true, true},
		{"users", models.RoleAdmin, false, false, false},
		{"users", models.RoleSuperAdmin, true, true, true},
		{"transactions", models.RoleUser, true, false, false},
		{"transactions", models.RoleAdmin, true, false, true},
		{"logs", models.RoleSuperAdmin, true, false, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.kind, strings.ReplaceAll(tc.role, " ", "_")), func(t *testing.T) {
			entity, err := r.Lookup(tc.kind)
			require.NoError(t, err)
			assert.Equal(t, tc.canRead, entity.CanRead(tc.role), "read")
			assert.Equal(t, tc.canWrite, entity.CanWrite(tc.role), "write")
			assert.Equal(t, tc.canDelete, entity.CanDelete(tc.role), "delete")
		})
	}
}

func TestRegistryLogsAndTransactionsAreNotWritable(t *testing.T) {
	r := NewRegistry()

	logs, err := r.Lookup("logs")
	require.NoError(t, err)
	assert.Nil(t, logs.Create)
	assert.Nil(t, logs.Update)
	assert.Nil(t, logs.Delete)

	txns, err := r.Lookup("transactions")
	require.NoError(t, err)
	assert.Nil(t, txns.Create)
	assert.Nil(t, txns.Update)
	assert.NotNil(t, txns.Delete)
}

func TestCreateUserHashesPasswordAndNeverEchoesIt(t *testing.T) {
	db := setupTestDB(t)
	super := seedUser(t, db, "root", models.RoleSuperAdmin)

	r := NewRegistry()
	entity, err := r.Lookup("users")
	require.NoError(t, err)

	tx := db.Begin()
	record, err := entity.Create(tx, json.RawMessage(`{"username":"nurse1","password":"plain-text-pw","full_name":"Nurse One"}`), super)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	payload, err := json.Marshal(record)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "plain-text-pw")
	assert.NotContains(t, string(payload), "password_hash")

	var user models.User
	require.NoError(t, db.First(&user, "username = ?", "nurse1").Error)
	assert.NotEqual(t, "plain-text-pw", user.PasswordHash)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"), "bcrypt hash expected")
}

func TestCreateUserRequiresPassword(t *testing.T) {
	db := setupTestDB(t)
	super := seedUser(t, db, "root", models.RoleSuperAdmin)

	r := NewRegistry()
	entity, err := r.Lookup("users")
	require.NoError(t, err)

	tx := db.Begin()
	_, err = entity.Create(tx, json.RawMessage(`{"username":"nurse1"}`), super)
	tx.Rollback()
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestCreateDuplicateUserIsConflict(t *testing.T) {
	db := setupTestDB(t)
	super := seedUser(t, db, "root", models.RoleSuperAdmin)

	r := NewRegistry()
	entity, err := r.Lookup("users")
	require.NoError(t, err)

	body := json.RawMessage(`{"username":"nurse1","password":"pw-one"}`)
	tx := db.Begin()
	_, err = entity.Create(tx, body, super)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	tx = db.Begin()
	_, err = entity.Create(tx, body, super)
	tx.Rollback()
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestUserInsertWithoutHashIsRejected(t *testing.T) {
	db := setupTestDB(t)

	err := db.Create(&models.User{Username: "ghost"}).Error
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeactivateUserByColumnUpdate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "temp", models.RoleUser)

	require.NoError(t, db.Model(&models.User{}).
		Where("user_id = ?", user.UserID).
		Update("is_active", false).Error)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.UserID).Error)
	assert.False(t, reloaded.IsActive)
	assert.NotEmpty(t, reloaded.PasswordHash, "the stored hash survives the column update")
}

func TestDeleteUserRejectsSelfDeletion(t *testing.T) {
	db := setupTestDB(t)
	super := seedUser(t, db, "root", models.RoleSuperAdmin)

	r := NewRegistry()
	entity, err := r.Lookup("users")
	require.NoError(t, err)

	tx := db.Begin()
	err = entity.Delete(tx, fmt.Sprint(super.UserID), super)
	tx.Rollback()
	require.Error(t, err)
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeleteTransactionPreservesVersionHistory(t *testing.T) {
	db := setupTestDB(t)
	admin := seedUser(t, db, "admin1", models.RoleAdmin)
	seedCatalog(t, db)
	seedTransaction(t, db, "T1", admin)

	v := NewVersioning()
	_, err := v.Amend(db, "T1", AmendInput{
		PaymentMethod: strPtr("card"),
		CartItems:     []CartItemInput{{ItemCode: "MED-001", Quantity: 1, Price: *decPtr("150.00")}},
	}, admin)
	require.NoError(t, err)

	r := NewRegistry()
	entity, err := r.Lookup("transactions")
	require.NoError(t, err)

	tx := db.Begin()
	require.NoError(t, entity.Delete(tx, "T1", admin))
	require.NoError(t, tx.Commit().Error)

	var txnCount, itemCount, versionCount int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("transaction_id = ?", "T1").Count(&txnCount).Error)
	require.NoError(t, db.Model(&models.TransactionItem{}).Where("transaction_id = ?", "T1").Count(&itemCount).Error)
	require.NoError(t, db.Model(&models.TransactionVersion{}).Where("transaction_id = ?", "T1").Count(&versionCount).Error)

	assert.Zero(t, txnCount, "transaction is gone")
	assert.Zero(t, itemCount, "line items cascade")
	assert.EqualValues(t, 1, versionCount, "version history survives as the audit trail")
}

func TestCrudMutationsWriteAuditEntries(t *testing.T) {
	db := setupTestDB(t)
	admin := seedUser(t, db, "admin1", models.RoleAdmin)

	r := NewRegistry()
	entity, err := r.Lookup("items")
	require.NoError(t, err)

	tx := db.Begin()
	_, err = entity.Create(tx, json.RawMessage(`{"item_code":"MED-009","name_th":"Bandage","price_opd":"25.00"}`), admin)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	var entry models.LogEntry
	require.NoError(t, db.Order("log_id DESC").First(&entry).Error)
	assert.Contains(t, entry.Action, "MED-009")
	assert.Contains(t, entry.Action, "items")
}
