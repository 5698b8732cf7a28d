package models

import (
	"time"

	"gorm.io/gorm"

	"medibill-backend/utils"
)

type User struct {
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	Username     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string    `gorm:"type:varchar(255)" json:"full_name"`
	RoleID       uint      `gorm:"index" json:"role_id"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	Role Role `gorm:"foreignKey:RoleID" json:"-"`
}

type userRow struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	RoleID   uint   `json:"role_id"`
	RoleName string `json:"role_name"`
	IsActive bool   `json:"is_active"`
}

// RoleName returns the user's role name, empty if the role was not loaded.
func (u *User) RoleName() string {
	return u.Role.RoleName
}

// CrudRow is the generic-CRUD serialization of a user. Credentials are never
// included.
func (u *User) CrudRow() any {
	row := userRow{
		UserID:   u.UserID,
		Username: u.Username,
		FullName: u.FullName,
		RoleID:   u.RoleID,
		RoleName: u.Role.RoleName,
		IsActive: u.IsActive,
	}
	if row.RoleName == "" {
		row.RoleName = "N/A"
	}
	return row
}

// SetPassword one-way hashes the plaintext and stores the hash.
func (u *User) SetPassword(plaintext string) error {
	hashed, err := utils.HashPassword(plaintext)
	if err != nil {
		return err
	}
	u.PasswordHash = hashed
	return nil
}

// BeforeCreate guards against a user row ever being inserted without a hash.
// Updates either go through SetPassword or leave the stored hash untouched,
// so column-level updates (deactivation, role changes) are not gated here.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PasswordHash == "" {
		return gorm.ErrInvalidData
	}
	return nil
}
