package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"medibill-backend/config"
	"medibill-backend/models"
)

// Entity is one kind in the closed CRUD registry: its primary key, its
// permission predicates, and typed operations. Resolved once at startup;
// nothing here reflects over table names at runtime.
type Entity struct {
	Kind    string
	PKField string

	CanRead   func(role string) bool
	CanWrite  func(role string) bool
	CanDelete func(role string) bool

	List   func(db *gorm.DB) (any, error)
	Create func(tx *gorm.DB, body json.RawMessage, actor models.User) (any, error)
	Update func(tx *gorm.DB, id string, body json.RawMessage, actor models.User) (any, error)
	Delete func(tx *gorm.DB, id string, actor models.User) error
}

// Registry maps entity kind to its CRUD definition.
type Registry struct {
	entities map[string]*Entity
}

func (r *Registry) Lookup(kind string) (*Entity, error) {
	e, ok := r.entities[kind]
	if !ok {
		return nil, NotFoundf("Table '%s' not found.", kind)
	}
	return e, nil
}

func anyRole(string) bool         { return true }
func privileged(role string) bool { return models.IsPrivileged(role) }
func superOnly(role string) bool  { return role == models.RoleSuperAdmin }
func noRole(string) bool          { return false }

// NewRegistry builds the closed set of CRUD-manageable entity kinds.
func NewRegistry() *Registry {
	r := &Registry{entities: map[string]*Entity{}}

	r.entities["items"] = &Entity{
		Kind:      "items",
		PKField:   "item_code",
		CanRead:   anyRole,
		CanWrite:  privileged,
		CanDelete: privileged,
		List:      listItems,
		Create:    createItem,
		Update:    updateItem,
		Delete:    deleteItem,
	}
	r.entities["staff"] = &Entity{
		Kind:      "staff",
		PKField:   "staff_id",
		CanRead:   anyRole,
		CanWrite:  privileged,
		CanDelete: privileged,
		List:      listStaff,
		Create:    createStaff,
		Update:    updateStaff,
		Delete:    deleteStaff,
	}
	r.entities["users"] = &Entity{
		Kind:      "users",
		PKField:   "user_id",
		CanRead:   superOnly,
		CanWrite:  superOnly,
		CanDelete: superOnly,
		List:      listUsers,
		Create:    createUser,
		Update:    updateUser,
		Delete:    deleteUser,
	}
	r.entities["transactions"] = &Entity{
		Kind:      "transactions",
		PKField:   "transaction_id",
		CanRead:   anyRole,
		CanWrite:  noRole, // transactions are written through their own endpoints
		CanDelete: privileged,
		List:      listTransactions,
		Delete:    deleteTransaction,
	}
	r.entities["logs"] = &Entity{
		Kind:      "logs",
		PKField:   "log_id",
		CanRead:   anyRole,
		CanWrite:  noRole,
		CanDelete: noRole, // the audit trail is never deletable through this path
		List:      listLogs,
	}

	return r
}

// --- items ---

type itemInput struct {
	ItemCode        *string          `json:"item_code"`
	NameTH          *string          `json:"name_th"`
	PriceOPD        *decimal.Decimal `json:"price_opd"`
	PriceIPD        *decimal.Decimal `json:"price_ipd"`
	PriceForeignOPD *decimal.Decimal `json:"price_foreign_opd"`
	PriceForeignIPD *decimal.Decimal `json:"price_foreign_ipd"`
	PriceStaff      *decimal.Decimal `json:"price_staff"`
}

func listItems(db *gorm.DB) (any, error) {
	var items []models.Item
	if err := db.Find(&items).Error; err != nil {
		return nil, Storagef(err, "fetch items")
	}
	return items, nil
}

func createItem(tx *gorm.DB, body json.RawMessage, actor models.User) (any, error) {
	var input itemInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, Invalidf("Invalid data provided.")
	}
	if input.ItemCode == nil || *input.ItemCode == "" {
		return nil, Invalidf("item_code is required.")
	}
	if input.NameTH == nil || *input.NameTH == "" {
		return nil, Invalidf("name_th is required.")
	}

	item := models.Item{ItemCode: *input.ItemCode, NameTH: *input.NameTH}
	applyItemInput(&item, input)

	if err := tx.Create(&item).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, Conflictf("An item with code '%s' already exists.", item.ItemCode)
		}
		return nil, Storagef(err, "create item")
	}
	if err := logMutation(tx, actor, "Created", item.ItemCode, "items"); err != nil {
		return nil, err
	}
	return item, nil
}

func updateItem(tx *gorm.DB, id string, body json.RawMessage, actor models.User) (any, error) {
	var input itemInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, Invalidf("Invalid data provided.")
	}

	var item models.Item
	if err := tx.First(&item, "item_code = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("Record not found.")
		}
		return nil, Storagef(err, "load item")
	}
	if input.NameTH != nil {
		item.NameTH = *input.NameTH
	}
	applyItemInput(&item, input)

	if err := tx.Save(&item).Error; err != nil {
		return nil, Storagef(err, "update item")
	}
	if err := logMutation(tx, actor, "Updated", id, "items"); err != nil {
		return nil, err
	}
	return item, nil
}

func applyItemInput(item *models.Item, input itemInput) {
	if input.PriceOPD != nil {
		item.PriceOPD = *input.PriceOPD
	}
	if input.PriceIPD != nil {
		item.PriceIPD = *input.PriceIPD
	}
	if input.PriceForeignOPD != nil {
		item.PriceForeignOPD = *input.PriceForeignOPD
	}
	if input.PriceForeignIPD != nil {
		item.PriceForeignIPD = *input.PriceForeignIPD
	}
	if input.PriceStaff != nil {
		item.PriceStaff = *input.PriceStaff
	}
}

func deleteItem(tx *gorm.DB, id string, actor models.User) error {
	result := tx.Delete(&models.Item{}, "item_code = ?", id)
	if result.Error != nil {
		return Storagef(result.Error, "delete item")
	}
	if result.RowsAffected == 0 {
		return NotFoundf("Record not found.")
	}
	return logMutation(tx, actor, "Deleted", id, "items")
}

// --- staff ---

type staffInput struct {
	StaffID   *string `json:"staff_id"`
	NameEN    *string `json:"name_en"`
	NameTH    *string `json:"name_th"`
	StaffRole *string `json:"staff_role"`
}

func listStaff(db *gorm.DB) (any, error) {
	var staff []models.Staff
	if err := db.Find(&staff).Error; err != nil {
		return nil, Storagef(err, "fetch staff")
	}
	return staff, nil
}

func createStaff(tx *gorm.DB, body json.RawMessage, actor models.User) (any, error) {
	var input staffInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, Invalidf("Invalid data provided.")
	}
	if input.StaffID == nil || *input.StaffID == "" {
		return nil, Invalidf("staff_id is required.")
	}
	if input.NameTH == nil || *input.NameTH == "" {
		return nil, Invalidf("name_th is required.")
	}

	member := models.Staff{StaffID: *input.StaffID, NameTH: *input.NameTH}
	if input.NameEN != nil {
		member.NameEN = *input.NameEN
	}
	if input.StaffRole != nil {
		member.StaffRole = *input.StaffRole
	}

	if err := tx.Create(&member).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, Conflictf("A staff member with id '%s' already exists.", member.StaffID)
		}
		return nil, Storagef(err, "create staff member")
	}
	if err := logMutation(tx, actor, "Created", member.StaffID, "staff"); err != nil {
		return nil, err
	}
	return member, nil
}

func updateStaff(tx *gorm.DB, id string, body json.RawMessage, actor models.User) (any, error) {
	var input staffInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, Invalidf("Invalid data provided.")
	}

	var member models.Staff
	if err := tx.First(&member, "staff_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("Record not found.")
		}
		return nil, Storagef(err, "load staff member")
	}
	if input.NameEN != nil {
		member.NameEN = *input.NameEN
	}
	if input.NameTH != nil {
		member.NameTH = *input.NameTH
	}
	if input.StaffRole != nil {
		member.StaffRole = *input.StaffRole
	}

	if err := tx.Save(&member).Error; err != nil {
		return nil, Storagef(err, "update staff member")
	}
	if err := logMutation(tx, actor, "Updated", id, "staff"); err != nil {
		return nil, err
	}
	return member, nil
}

func deleteStaff(tx *gorm.DB, id string, actor models.User) error {
	result := tx.Delete(&models.Staff{}, "staff_id = ?", id)
	if result.Error != nil {
		return Storagef(result.Error, "delete staff member")
	}
	if result.RowsAffected == 0 {
		return NotFoundf("Record not found.")
	}
	return logMutation(tx, actor, "Deleted", id, "staff")
}

// --- users ---

type userInput struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
	RoleID   *uint   `json:"role_id"`
	IsActive *bool   `json:"is_active"`
}

func listUsers(db *gorm.DB) (any, error) {
	var users []models.User
	if err := db.Preload("Role").Find(&users).Error; err != nil {
		return nil, Storagef(err, "fetch users")
	}
	rows := make([]any, 0, len(users))
	for i := range users {
		rows = append(rows, users[i].CrudRow())
	}
	return rows, nil
}

func createUser(tx *gorm.DB, body json.RawMessage, actor models.User) (any, error) {
	var input userInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, Invalidf("Invalid data provided.")
	}
	if input.Username == nil || *input.Username == "" {
		return nil, Invalidf("username is required.")
	}
	if input.Password == nil || *input.Password == "" {
		return nil, Invalidf("Password is required.")
	}

	user := models.User{Username: *input.Username, IsActive: true}
	if err := user.SetPassword(*input.Password); err != nil {
		return nil, Storagef(err, "hash password")
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.RoleID != nil {
		user.RoleID = *input.RoleID
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := tx.Create(&user).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, Conflictf("A user named '%s' already exists.", user.Username)
		}
		return nil, Storagef(err, "create user")
	}
	if err := logMutation(tx, actor, "Created", strconv.FormatUint(uint64(user.UserID), 10), "users"); err != nil {
		return nil, err
	}
	if err := tx.Preload("Role").First(&user, user.UserID).Error; err != nil {
		return nil, Storagef(err, "reload user")
	}
	return user.CrudRow(), nil
}

func updateUser(tx *gorm.DB, id string, body json.RawMessage, actor models.User) (any, error) {
	userID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, Invalidf("Invalid user id.")
	}
	var input userInput
	if err := json.Unmarshal(body, &input); err != nil {
		return nil, Invalidf("Invalid data provided.")
	}

	var user models.User
	if err := tx.First(&user, uint(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("Record not found.")
		}
		return nil, Storagef(err, "load user")
	}

	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Password != nil && *input.Password != "" {
		if err := user.SetPassword(*input.Password); err != nil {
			return nil, Storagef(err, "hash password")
		}
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.RoleID != nil {
		user.RoleID = *input.RoleID
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := tx.Save(&user).Error; err != nil {
		if IsDuplicateKey(err) {
			return nil, Conflictf("A user named '%s' already exists.", user.Username)
		}
		return nil, Storagef(err, "update user")
	}
	if err := logMutation(tx, actor, "Updated", id, "users"); err != nil {
		return nil, err
	}
	if err := tx.Preload("Role").First(&user, user.UserID).Error; err != nil {
		return nil, Storagef(err, "reload user")
	}
	return user.CrudRow(), nil
}

func deleteUser(tx *gorm.DB, id string, actor models.User) error {
	userID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return Invalidf("Invalid user id.")
	}
	if actor.UserID == uint(userID) {
		return Deniedf("You cannot delete your own account.")
	}
	result := tx.Delete(&models.User{}, uint(userID))
	if result.Error != nil {
		return Storagef(result.Error, "delete user")
	}
	if result.RowsAffected == 0 {
		return NotFoundf("Record not found.")
	}
	return logMutation(tx, actor, "Deleted", id, "users")
}

// --- transactions ---

func listTransactions(db *gorm.DB) (any, error) {
	var txns []models.Transaction
	err := db.Preload("Doctor").Preload("Consultant").Preload("CreatedByUser").
		Order("transaction_date DESC").
		Find(&txns).Error
	if err != nil {
		return nil, Storagef(err, "fetch transactions")
	}
	rows := make([]any, 0, len(txns))
	for i := range txns {
		rows = append(rows, txns[i].CrudRow())
	}
	return rows, nil
}

// deleteTransaction removes the transaction and its line items. Version
// history is deliberately left behind as the audit trail.
func deleteTransaction(tx *gorm.DB, id string, actor models.User) error {
	var txn models.Transaction
	if err := tx.First(&txn, "transaction_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundf("Record not found.")
		}
		return Storagef(err, "load transaction")
	}
	if err := tx.Where("transaction_id = ?", id).Delete(&models.TransactionItem{}).Error; err != nil {
		return Storagef(err, "delete transaction items")
	}
	if err := tx.Delete(&txn).Error; err != nil {
		return Storagef(err, "delete transaction")
	}
	return logMutation(tx, actor, "Deleted", id, "transactions")
}

// --- logs ---

func listLogs(db *gorm.DB) (any, error) {
	var entries []models.LogEntry
	if err := db.Preload("User").Order("timestamp DESC").Find(&entries).Error; err != nil {
		return nil, Storagef(err, "fetch logs")
	}
	loc := config.DisplayLocation()
	rows := make([]any, 0, len(entries))
	for i := range entries {
		rows = append(rows, entries[i].CrudRowIn(loc))
	}
	return rows, nil
}

func logMutation(tx *gorm.DB, actor models.User, verb, id, table string) error {
	actorID := actor.UserID
	action := fmt.Sprintf("%s record with ID '%s' in table '%s'.", verb, id, table)
	if err := AddLogEntry(tx, &actorID, action); err != nil {
		return Storagef(err, "write audit entry")
	}
	return nil
}
