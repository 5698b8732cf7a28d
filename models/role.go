package models

// Role names recognized across the app. "admin" and "super admin" are the
// privileged roles allowed to amend transactions and manage reference data.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super admin"
)

type Role struct {
	RoleID   uint   `gorm:"primaryKey" json:"role_id"`
	RoleName string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
}

// IsPrivileged reports whether a role may amend transactions and touch
// catalog/staff reference data.
func IsPrivileged(roleName string) bool {
	return roleName == RoleAdmin || roleName == RoleSuperAdmin
}
