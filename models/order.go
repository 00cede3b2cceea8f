package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // created, awaiting payment
	OrderStatusPaid      OrderStatus = "paid"      // gateway confirmed payment
	OrderStatusShipped   OrderStatus = "shipped"   // handed to delivery
	OrderStatusCompleted OrderStatus = "completed" // customer received the goods
	OrderStatusFailed    OrderStatus = "failed"    // gateway declined payment
	OrderStatusCanceled  OrderStatus = "canceled"  // canceled by the customer
)

const (
	DeliveryPickup   = "pickup"
	DeliveryShipping = "shipping"
)

// CancellationWindow is how long after creation a customer may cancel a
// pending order themselves.
const CancellationWindow = 2 * time.Hour

// CanTransition reports whether an order status change is allowed.
// Completed, failed and canceled are terminal.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusPaid || to == OrderStatusFailed || to == OrderStatusCanceled
	case OrderStatusPaid:
		return to == OrderStatusShipped || to == OrderStatusCompleted
	case OrderStatusShipped:
		return to == OrderStatusCompleted
	default:
		return false
	}
}

// CustomerDetails is frozen into the order at checkout. Address fields are
// empty for pickup orders.
type CustomerDetails struct {
	FullName       string  `json:"full_name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	City           string  `json:"city"`
	Street         string  `json:"street"`
	HouseNumber    string  `json:"house_number"`
	PostalCode     string  `json:"postal_code"`
	Notes          string  `json:"notes"`
	DeliveryMethod string  `json:"delivery_method"`
	ShippingFee    float64 `json:"shipping_fee"`
}

// Order is created once at checkout and is immutable afterwards except for
// status, the paid/failed timestamps and the raw gateway payload.
type Order struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	OrderRef string `gorm:"uniqueIndex;not null" json:"order_ref"`
	UserID   string `gorm:"index;not null" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"-"`

	Customer CustomerDetails `gorm:"embedded;embeddedPrefix:customer_" json:"customer_details"`
	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	TotalWithoutTax float64 `json:"total_without_tax"` // items only
	ShippingFee     float64 `json:"shipping_fee"`
	TotalToPay      float64 `json:"total_to_pay"` // items + shipping

	Status OrderStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`

	// Raw server-to-server notification body, kept for audit.
	GatewayPayload string `gorm:"type:text" json:"-"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	FailedAt  *time.Time `json:"failed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// OrderItem snapshots a cart line at checkout time. Product name, option name
// and price are copied so later catalog edits never change a placed order.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"index" json:"order_id"`
	ProductID   uint    `json:"product_id"`
	OptionID    string  `json:"option_id"`
	OptionIndex int     `json:"option_index"`
	ProductName string  `json:"product_name"`
	OptionName  string  `json:"option_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Image       string  `json:"image"`
	ItemNote    string  `json:"item_note"`
	ItemImage   string  `json:"item_image"`
}
