package models

import "github.com/shopspring/decimal"

// Item is a catalog entry with one price per patient tier. Prices are
// fixed-point decimals, never floats.
type Item struct {
	ItemCode        string          `gorm:"type:varchar(50);primaryKey" json:"item_code"`
	NameTH          string          `gorm:"type:varchar(255);column:name_th;not null" json:"name_th"`
	PriceOPD        decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"price_opd"`
	PriceIPD        decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"price_ipd"`
	PriceForeignOPD decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"price_foreign_opd"`
	PriceForeignIPD decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"price_foreign_ipd"`
	PriceStaff      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"price_staff"`
}

// PickerRow is the shape the point-of-sale screen consumes.
func (i *Item) PickerRow() any {
	return map[string]any{
		"itemcode":    i.ItemCode,
		"name":        i.NameTH,
		"opd":         i.PriceOPD,
		"ipd":         i.PriceIPD,
		"foreign_opd": i.PriceForeignOPD,
		"foreign_ipd": i.PriceForeignIPD,
		"staff":       i.PriceStaff,
	}
}
