package models

type Staff struct {
	StaffID   string `gorm:"type:varchar(50);primaryKey" json:"staff_id"`
	NameEN    string `gorm:"type:varchar(255);column:name_en" json:"name_en"`
	NameTH    string `gorm:"type:varchar(255);column:name_th;not null" json:"name_th"`
	StaffRole string `gorm:"type:varchar(100)" json:"staff_role"`
}

func (Staff) TableName() string {
	return "staff"
}

// PickerRow is the compact shape the point-of-sale screen consumes.
func (s *Staff) PickerRow() any {
	return map[string]any{
		"id":   s.StaffID,
		"name": s.NameTH,
		"role": s.StaffRole,
	}
}
