package models

import "time"

// MaxItemNoteLength caps the free-text note on a cart line.
const MaxItemNoteLength = 500

// CartItem is a user's pre-checkout selection. One row per
// (user, product, option); adding the same selection again merges quantities.
type CartItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	ProductID   uint      `gorm:"not null" json:"product_id"`
	OptionID    string    `gorm:"index" json:"option_id"`
	OptionIndex int       `json:"option_index"` // legacy positional shim
	Quantity    int       `gorm:"not null;default:1" json:"quantity"`
	ItemNote    string    `gorm:"type:VARCHAR(500)" json:"item_note"`
	AddedAt     time.Time `json:"added_at"`
}
