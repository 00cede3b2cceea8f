package orderControllers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luxurytech30-cpu/wrap-back/apperr"
	"github.com/luxurytech30-cpu/wrap-back/models"
)

// defaultShippingFee applies when SHIPPING_FEE is unset.
const defaultShippingFee = 40.0

// -------- Request Structs --------

type ItemMeta struct {
	ProductID uint   `json:"product_id"`
	OptionID  string `json:"option_id"`
	Note      string `json:"note"`
	ImageURL  string `json:"image_url"`
}

type CheckoutRequest struct {
	FullName       string     `json:"full_name"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	City           string     `json:"city"`
	Street         string     `json:"street"`
	HouseNumber    string     `json:"house_number"`
	PostalCode     string     `json:"postal_code"`
	Notes          string     `json:"notes"`
	DeliveryMethod string     `json:"delivery_method"`
	ItemsMeta      []ItemMeta `json:"items_meta"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// -------- Helpers --------

// ShippingFee is decided by the server, never taken from the client.
func ShippingFee(method string) float64 {
	if method != models.DeliveryShipping {
		return 0
	}
	if v := os.Getenv("SHIPPING_FEE"); v != "" {
		if fee, err := strconv.ParseFloat(v, 64); err == nil {
			return fee
		}
	}
	return defaultShippingFee
}

func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

// -------- Core Logic --------

// Checkout materializes the caller's cart into a pending order. Prices are
// frozen at this moment; stock is only soft-checked here and deducted when the
// gateway confirms payment. The cart is left intact so an abandoned checkout
// can be retried.
func Checkout(db *gorm.DB, userID string, req CheckoutRequest) (*models.Order, error) {
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Phone) == "" {
		return nil, apperr.New(apperr.Validation, "Full name and phone are required")
	}

	method := models.DeliveryPickup
	if req.DeliveryMethod == models.DeliveryShipping {
		method = models.DeliveryShipping
	}
	if method == models.DeliveryShipping {
		if req.City == "" || req.Street == "" || req.HouseNumber == "" {
			return nil, apperr.New(apperr.Validation, "Shipping requires city, street and house number")
		}
	}
	fee := ShippingFee(method)

	var cartItems []models.CartItem
	if err := db.Where("user_id = ?", userID).Order("added_at").Find(&cartItems).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to load cart", err)
	}
	if len(cartItems) == 0 {
		return nil, apperr.New(apperr.Validation, "Cart is empty")
	}

	metaByKey := make(map[string]ItemMeta, len(req.ItemsMeta))
	for _, m := range req.ItemsMeta {
		metaByKey[metaKey(m.ProductID, m.OptionID)] = m
	}

	itemsTotal := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(cartItems))

	for _, cartItem := range cartItems {
		var product models.Product
		if err := db.Preload("Options").First(&product, cartItem.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Newf(apperr.Validation, "Product %d no longer exists", cartItem.ProductID)
			}
			return nil, apperr.Wrap(apperr.Internal, "Failed to resolve product", err)
		}

		option := models.ResolveOption(&product, cartItem.OptionID, cartItem.OptionIndex)
		if option == nil {
			return nil, apperr.Newf(apperr.Validation, "Option no longer exists on product %s", product.Name)
		}

		if option.Stock < cartItem.Quantity {
			return nil, apperr.Newf(apperr.Validation,
				"Insufficient stock for %s - %s (%d left)", product.Name, option.Name, option.Stock)
		}

		unitPrice := option.UnitPrice()
		itemsTotal = itemsTotal.Add(decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(cartItem.Quantity))))

		item := models.OrderItem{
			ProductID:   product.ID,
			OptionID:    option.ID,
			OptionIndex: option.Position,
			ProductName: product.Name,
			OptionName:  option.Name,
			UnitPrice:   unitPrice,
			Quantity:    cartItem.Quantity,
			Image:       product.Image,
			ItemNote:    cartItem.ItemNote,
		}
		if meta, ok := metaByKey[metaKey(product.ID, option.ID)]; ok {
			if note := strings.TrimSpace(meta.Note); note != "" {
				item.ItemNote = note
			}
			item.ItemImage = strings.TrimSpace(meta.ImageURL)
		}
		orderItems = append(orderItems, item)
	}

	feeDec := decimal.NewFromFloat(fee)
	order := models.Order{
		OrderRef: generateOrderRef(),
		UserID:   userID,
		Customer: models.CustomerDetails{
			FullName:       strings.TrimSpace(req.FullName),
			Phone:          strings.TrimSpace(req.Phone),
			Email:          req.Email,
			Notes:          req.Notes,
			DeliveryMethod: method,
			ShippingFee:    fee,
		},
		Items:           orderItems,
		TotalWithoutTax: itemsTotal.InexactFloat64(),
		ShippingFee:     fee,
		TotalToPay:      itemsTotal.Add(feeDec).InexactFloat64(),
		Status:          models.OrderStatusPending,
	}
	if method == models.DeliveryShipping {
		order.Customer.City = req.City
		order.Customer.Street = req.Street
		order.Customer.HouseNumber = req.HouseNumber
		order.Customer.PostalCode = req.PostalCode
	}

	if err := db.Create(&order).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to create order", err)
	}

	BroadcastOrderEvent("created", &order)
	return &order, nil
}

func metaKey(productID uint, optionID string) string {
	return strconv.FormatUint(uint64(productID), 10) + "-" + optionID
}

// Cancel lets the owner cancel a pending order within the cancellation
// window. The final flip is conditional on the order still being pending so a
// concurrent payment notification cannot be overwritten.
func Cancel(db *gorm.DB, userID string, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "Order not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "Failed to load order", err)
	}

	if order.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "Not allowed")
	}
	if order.Status != models.OrderStatusPending {
		return nil, apperr.New(apperr.InvalidState, "Only pending orders can be canceled")
	}
	if time.Since(order.CreatedAt) > models.CancellationWindow {
		return nil, apperr.New(apperr.InvalidState, "Cancellation window expired (2 hours)")
	}

	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
		Update("status", models.OrderStatusCanceled)
	if result.Error != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to cancel order", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.InvalidState, "Only pending orders can be canceled")
	}

	order.Status = models.OrderStatusCanceled
	return &order, nil
}

// UpdateStatus applies an admin fulfilment transition. Paid and failed are
// owned by the payment gateway and cannot be set here.
func UpdateStatus(db *gorm.DB, orderID uint, to models.OrderStatus) error {
	switch to {
	case models.OrderStatusShipped, models.OrderStatusCompleted, models.OrderStatusCanceled:
	default:
		return apperr.Newf(apperr.Validation, "Status %q cannot be set manually", to)
	}

	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Order not found")
		}
		return apperr.Wrap(apperr.Internal, "Failed to load order", err)
	}

	if !models.CanTransition(order.Status, to) {
		return apperr.Newf(apperr.InvalidState, "Cannot move order from %s to %s", order.Status, to)
	}

	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", to)
	if result.Error != nil {
		return apperr.Wrap(apperr.Internal, "Failed to update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Newf(apperr.InvalidState, "Cannot move order from %s to %s", order.Status, to)
	}
	return nil
}

// -------- Handlers --------

// POST /orders/checkout
func CheckoutHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := Checkout(db, userID, req)
		if err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order created (pending payment)", "order": order})
	}
}

// PATCH /orders/:orderID/cancel
func CancelOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		orderID, err := strconv.Atoi(c.Param("orderID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
			return
		}
		order, err := Cancel(db, userID, uint(orderID))
		if err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order canceled", "order": order})
	}
}

// GET /orders/my
func GetMyOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var orders []models.Order
		if err := db.
			Preload("Items").
			Where("user_id = ? AND status <> ?", userID, models.OrderStatusFailed).
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /admin/orders
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.
			Preload("Items").
			Where("status <> ?", models.OrderStatusFailed).
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// FindOrder resolves an order by its numeric id or by its order ref. The two
// columns have different types, so the key picks exactly one of them: a
// string that is not an integer can only be a ref.
func FindOrder(db *gorm.DB, key string) (*models.Order, error) {
	query := db.Preload("Items")
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("order_ref = ?", key)
	}
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GET /admin/orders/:orderID (numeric id or order ref)
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := FindOrder(db, c.Param("orderID"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// PATCH /admin/orders/:orderID/status
func UpdateOrderStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.Atoi(c.Param("orderID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
			return
		}
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := UpdateStatus(db, uint(orderID), models.OrderStatus(strings.ToLower(req.Status))); err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
	}
}
