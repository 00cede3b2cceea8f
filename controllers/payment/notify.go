package paymentControllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	cartControllers "github.com/luxurytech30-cpu/wrap-back/controllers/cart"
	orderControllers "github.com/luxurytech30-cpu/wrap-back/controllers/order"
	"github.com/luxurytech30-cpu/wrap-back/models"
)

// GatewayNotice is the normalized form of a Tranzila IPN. Field names in the
// raw payload depend on terminal configuration, so parsing goes through alias
// lists and anything unrecognized degrades to a no-op.
type GatewayNotice struct {
	OrderID  string
	Response string
	TempRef  string
	Raw      map[string]string
}

// Approved reports whether the response code is in the gateway's exact
// success set.
func (n GatewayNotice) Approved() bool {
	return n.Response == "000" || n.Response == "0"
}

var (
	orderIDAliases  = []string{"orderid", "myorder", "OrderId", "orderId"}
	responseAliases = []string{"Response", "response"}
	tempRefAliases  = []string{"Tempref", "tempref", "TempRef"}
)

func firstOf(values map[string]string, aliases []string) string {
	for _, key := range aliases {
		if v := strings.TrimSpace(values[key]); v != "" {
			return v
		}
	}
	return ""
}

// ParseNotice flattens query and form values (the IPN may arrive as GET or
// POST) and resolves the known aliases.
func ParseNotice(query url.Values, form url.Values) GatewayNotice {
	raw := make(map[string]string)
	for key, vals := range query {
		if len(vals) > 0 {
			raw[key] = vals[0]
		}
	}
	for key, vals := range form {
		if len(vals) > 0 {
			raw[key] = vals[0]
		}
	}
	return GatewayNotice{
		OrderID:  firstOf(raw, orderIDAliases),
		Response: firstOf(raw, responseAliases),
		TempRef:  firstOf(raw, tempRefAliases),
		Raw:      raw,
	}
}

// ApplyNotification is the payment reconciliation state machine. It is safe
// against duplicate, out-of-order and unrecognized notifications:
//
//   - no order id / unknown order: no-op
//   - order already paid: no-op (the idempotency guard)
//   - declined: pending -> failed
//   - approved: pending -> paid, then stock deduction and cart clearing
//
// Both flips are conditional updates keyed on the current pending status, so
// two racing notifications cannot both apply side effects.
func ApplyNotification(db *gorm.DB, notice GatewayNotice) error {
	if notice.OrderID == "" {
		return nil
	}

	// The gateway is only ever handed the order ref, never the numeric id,
	// and comparing an arbitrary string against the bigint id column errors
	// out on Postgres.
	var order models.Order
	err := db.Preload("Items").
		Where("order_ref = ?", notice.OrderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if order.Status == models.OrderStatusPaid {
		return nil
	}

	rawPayload, _ := json.Marshal(notice.Raw)
	now := time.Now()

	if !notice.Approved() {
		return db.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":          models.OrderStatusFailed,
				"failed_at":       now,
				"gateway_payload": string(rawPayload),
			}).Error
	}

	result := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":          models.OrderStatusPaid,
			"paid_at":         now,
			"gateway_payload": string(rawPayload),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// A concurrent notification won the transition, or the order left
		// pending some other way. Side effects belong to the winner.
		return nil
	}

	// Each decrement is its own unit of work: one failing line must not block
	// the others, and the clamp keeps stock from going negative when two paid
	// orders competed for the last unit.
	for _, item := range order.Items {
		if err := models.DeductOptionStock(db, item.OptionID, item.ProductID, item.OptionIndex, item.Quantity); err != nil {
			log.Printf("stock deduction failed for order %d option %s: %v", order.ID, item.OptionID, err)
		}
	}

	if err := cartControllers.Clear(db, order.UserID); err != nil {
		log.Printf("cart clear failed for user %s after order %d: %v", order.UserID, order.ID, err)
	}

	order.Status = models.OrderStatusPaid
	order.PaidAt = &now
	orderControllers.BroadcastOrderEvent("paid", &order)
	return nil
}

// NotifyHandler answers the IPN. It always acknowledges with 200 "OK" —
// internal errors are logged, never surfaced, so the gateway's retry
// machinery is not set off.
// ANY /payments/notify
func NotifyHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Request.ParseForm()
		notice := ParseNotice(c.Request.URL.Query(), c.Request.PostForm)

		if err := ApplyNotification(db, notice); err != nil {
			log.Printf("IPN processing error for order %q: %v", notice.OrderID, err)
		}
		c.String(http.StatusOK, "OK")
	}
}
