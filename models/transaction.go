package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	TransactionID               string          `gorm:"type:varchar(50);primaryKey" json:"transaction_id"`
	HN                          string          `gorm:"type:varchar(50);column:hn" json:"hn"`
	PatientFName                string          `gorm:"type:varchar(255)" json:"patient_fname"`
	PatientLName                string          `gorm:"type:varchar(255)" json:"patient_lname"`
	PatientGender               string          `gorm:"type:varchar(20)" json:"patient_gender"`
	PatientAge                  *int            `json:"patient_age"`
	TransactionDate             time.Time       `gorm:"not null" json:"transaction_date"`
	PatientType                 string          `gorm:"type:varchar(50)" json:"patient_type"`
	TotalAmount                 decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	DepositAmount               decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"deposit_amount"`
	OutstandingBalance          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"outstanding_balance"`
	PaymentMethod               string          `gorm:"type:varchar(50)" json:"payment_method"`
	ReviewStatus                string          `gorm:"type:varchar(100)" json:"review_status"`
	Comment                     string          `gorm:"type:text" json:"comment"`
	DoctorID                    *string         `gorm:"type:varchar(50);index" json:"doctor_id"`
	ConsultantID                *string         `gorm:"type:varchar(50);index" json:"consultant_id"`
	CreatedByUserID             *uint           `gorm:"index" json:"created_by_user_id"`
	ConsultantSignatureFilename string          `gorm:"type:varchar(255)" json:"consultant_signature_filename"`
	PatientSignatureFilename    string          `gorm:"type:varchar(255)" json:"patient_signature_filename"`
	CreatedAt                   time.Time       `json:"created_at"`
	UpdatedAt                   time.Time       `json:"updated_at"`

	Doctor        *Staff            `gorm:"foreignKey:DoctorID" json:"-"`
	Consultant    *Staff            `gorm:"foreignKey:ConsultantID" json:"-"`
	CreatedByUser *User             `gorm:"foreignKey:CreatedByUserID" json:"-"`
	Items         []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE" json:"items"`
}

type TransactionItem struct {
	TransactionItemID uint            `gorm:"primaryKey" json:"transaction_item_id"`
	TransactionID     string          `gorm:"type:varchar(50);index;not null" json:"transaction_id"`
	ItemCode          string          `gorm:"type:varchar(50);index;not null" json:"item_code"`
	Quantity          int             `gorm:"not null;default:1" json:"quantity"`
	PricePerUnit      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_per_unit"`

	Item *Item `gorm:"foreignKey:ItemCode;references:ItemCode" json:"-"`
}

// ProductLine is one cart row in the transaction's external representation.
// The unit price is the price at time of sale, not the live catalog price.
type ProductLine struct {
	ItemCode string          `json:"itemcode"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// TransactionDetail is the full external representation used by the read path
// and, verbatim, by version snapshots.
type TransactionDetail struct {
	TransactionID               string          `json:"transaction_id"`
	PatientHN                   string          `json:"patient_hn"`
	FName                       string          `json:"fname"`
	LName                       string          `json:"lname"`
	Gender                      string          `json:"gender"`
	PatientAge                  *int            `json:"patient_age"`
	Date                        string          `json:"date"`
	Type                        string          `json:"type"`
	Products                    []ProductLine   `json:"products_list"`
	Total                       decimal.Decimal `json:"total"`
	DoctorID                    string          `json:"doctor_id"`
	DoctorName                  string          `json:"doctor_name"`
	ConsultantID                string          `json:"consultant_id"`
	ConsultantName              string          `json:"consultant_name"`
	DepositAmount               decimal.Decimal `json:"deposit_amount"`
	OutstandingBalance          decimal.Decimal `json:"outstanding_balance"`
	PaymentMethod               string          `json:"payment_method"`
	ReviewStatus                string          `json:"review_status"`
	Comment                     string          `json:"comment"`
	CreatedBy                   string          `json:"created_by"`
	ConsultantSignatureFilename string          `json:"consultant_signature_filename"`
	PatientSignatureFilename    string          `json:"patient_signature_filename"`
}

// Detail builds the external representation. Doctor, Consultant, CreatedByUser
// and Items (with their Item) must be preloaded.
func (t *Transaction) Detail() TransactionDetail {
	products := make([]ProductLine, 0, len(t.Items))
	for _, ti := range t.Items {
		line := ProductLine{
			ItemCode: ti.ItemCode,
			Price:    ti.PricePerUnit,
			Quantity: ti.Quantity,
		}
		if ti.Item != nil {
			line.Name = ti.Item.NameTH
		}
		products = append(products, line)
	}

	d := TransactionDetail{
		TransactionID:               t.TransactionID,
		PatientHN:                   t.HN,
		FName:                       t.PatientFName,
		LName:                       t.PatientLName,
		Gender:                      t.PatientGender,
		PatientAge:                  t.PatientAge,
		Date:                        t.TransactionDate.UTC().Format(time.RFC3339),
		Products:                    products,
		Total:                       t.TotalAmount,
		DepositAmount:               t.DepositAmount,
		OutstandingBalance:          t.OutstandingBalance,
		PaymentMethod:               t.PaymentMethod,
		ReviewStatus:                t.ReviewStatus,
		Comment:                     t.Comment,
		CreatedBy:                   "N/A",
		ConsultantSignatureFilename: t.ConsultantSignatureFilename,
		PatientSignatureFilename:    t.PatientSignatureFilename,
	}
	if t.PatientType != "" {
		d.Type = strings.ToLower(t.PatientType)
	}
	if t.DoctorID != nil {
		d.DoctorID = *t.DoctorID
	}
	if t.Doctor != nil {
		d.DoctorName = t.Doctor.NameTH
	}
	if t.ConsultantID != nil {
		d.ConsultantID = *t.ConsultantID
	}
	if t.Consultant != nil {
		d.ConsultantName = t.Consultant.NameTH
	}
	if t.CreatedByUser != nil {
		d.CreatedBy = t.CreatedByUser.FullName
	}
	return d
}

// CrudRow is the flattened shape shown in the admin CRUD table.
func (t *Transaction) CrudRow() any {
	row := map[string]any{
		"transaction_id":   t.TransactionID,
		"patient_hn":       t.HN,
		"patient_type":     t.PatientType,
		"transaction_date": t.TransactionDate.UTC().Format(time.RFC3339),
		"patient_name":     strings.TrimSpace(t.PatientFName + " " + t.PatientLName),
		"patient_age":      t.PatientAge,
		"doctor":           "N/A",
		"consultant":       "N/A",
		"total_amount":     t.TotalAmount,
		"deposit_amount":   t.DepositAmount,
		"payment_method":   t.PaymentMethod,
		"review_status":    t.ReviewStatus,
		"comment":          t.Comment,
		"created_by":       "N/A",
	}
	if t.Doctor != nil {
		row["doctor"] = t.Doctor.NameTH
	}
	if t.Consultant != nil {
		row["consultant"] = t.Consultant.NameTH
	}
	if t.CreatedByUser != nil {
		row["created_by"] = t.CreatedByUser.FullName
	}
	return row
}
