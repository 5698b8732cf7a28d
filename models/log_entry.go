package models

import "time"

// LogEntry is the audit trail. Timestamps are stored UTC and converted to the
// display zone only when rendered.
type LogEntry struct {
	LogID     uint      `gorm:"primaryKey" json:"log_id"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	Action    string    `gorm:"type:text;not null" json:"action"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// CrudRowIn renders the log row for the admin table, timestamp in the given
// location.
func (l *LogEntry) CrudRowIn(loc *time.Location) any {
	username := "System"
	if l.User != nil {
		username = l.User.Username
	}
	return map[string]any{
		"log_id":    l.LogID,
		"timestamp": l.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
		"user":      username,
		"action":    l.Action,
	}
}
