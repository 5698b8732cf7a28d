package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionVersion is an append-only record of a transaction's state as it
// existed immediately before an amendment. Rows are never updated or deleted.
//
// TransactionID deliberately has no foreign key to transactions: deleting a
// transaction must leave its version history intact as an audit trail.
type TransactionVersion struct {
	VersionID       uint           `gorm:"primaryKey" json:"version_id"`
	TransactionID   string         `gorm:"type:varchar(50);not null;index;uniqueIndex:uq_transaction_version,priority:1" json:"transaction_id"`
	VersionNumber   int            `gorm:"not null;uniqueIndex:uq_transaction_version,priority:2" json:"version_number"`
	Snapshot        datatypes.JSON `gorm:"not null" json:"snapshot"`
	ChangeReason    string         `gorm:"type:text" json:"change_reason"`
	CreatedByUserID uint           `gorm:"not null;index" json:"created_by_user_id"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`

	CreatedByUser *User `gorm:"foreignKey:CreatedByUserID" json:"-"`
}
