package models

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	CategoryID  uint            `gorm:"index" json:"category_id"`
	Category    Category        `gorm:"foreignKey:CategoryID" json:"category"`
	Image       string          `json:"image"`
	IsTop       bool            `json:"is_top"`
	Options     []ProductOption `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"options"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ProductOption is a purchasable variant with its own price and stock.
// Options carry a stable UUID so cart and order lines survive reordering of a
// product's option list; Position is kept as a legacy fallback for rows that
// predate stable ids.
type ProductOption struct {
	ID        string   `gorm:"primaryKey" json:"id"`
	ProductID uint     `gorm:"index;not null" json:"product_id"`
	Position  int      `json:"position"`
	Name      string   `gorm:"not null" json:"name"`
	BasePrice float64  `gorm:"not null" json:"base_price"`
	SalePrice *float64 `json:"sale_price,omitempty"`
	Stock     int      `gorm:"default:0" json:"stock"`
}

// UnitPrice is the effective price: sale price when set, base price otherwise.
func (o *ProductOption) UnitPrice() float64 {
	if o.SalePrice != nil {
		return *o.SalePrice
	}
	return o.BasePrice
}

// ResolveOption finds an option on a loaded product, preferring the stable id
// and falling back to the legacy positional index.
func ResolveOption(product *Product, optionID string, optionIndex int) *ProductOption {
	if optionID != "" {
		for i := range product.Options {
			if product.Options[i].ID == optionID {
				return &product.Options[i]
			}
		}
		return nil
	}
	for i := range product.Options {
		if product.Options[i].Position == optionIndex {
			return &product.Options[i]
		}
	}
	return nil
}

// DeductOptionStock decrements an option's stock by qty in a single statement,
// clamped so it never goes below zero. Each call is its own unit of work so one
// failing line in a multi-item order does not block the others.
func DeductOptionStock(db *gorm.DB, optionID string, productID uint, optionIndex int, qty int) error {
	q := db.Model(&ProductOption{})
	if optionID != "" {
		q = q.Where("id = ?", optionID)
	} else {
		q = q.Where("product_id = ? AND position = ?", productID, optionIndex)
	}
	return q.Update("stock", gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", qty, qty)).Error
}
