package paymentControllers

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxurytech30-cpu/wrap-back/apperr"
	"github.com/luxurytech30-cpu/wrap-back/models"
)

func TestBuildPaymentURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://shop.example.com")
	t.Setenv("TRANZILA_SUPPLIER", "wrapshop")
	t.Setenv("TRANZILA_CURRENCY", "1")
	t.Setenv("TRANZILA_LANG", "he")

	order := &models.Order{
		OrderRef:   "20250101120000-abc",
		TotalToPay: 60,
		Customer: models.CustomerDetails{
			FullName:    "Dana Levi",
			Phone:       "0501234567",
			City:        "Haifa",
			Street:      "Herzl",
			HouseNumber: "12",
		},
	}

	raw := BuildPaymentURL(order, "")
	require.True(t, strings.HasPrefix(raw, "https://direct.tranzila.com/wrapshop/iframe.php?"), raw)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	params := parsed.Query()

	assert.Equal(t, "60.00", params.Get("sum"), "amount is a fixed 2-decimal string")
	assert.Equal(t, "1", params.Get("currency"))
	assert.Equal(t, "he", params.Get("lang"))
	assert.Equal(t, "20250101120000-abc", params.Get("orderid"))
	assert.Equal(t, "1", params.Get("cred_type"))
	assert.Equal(t, "Herzl 12", params.Get("address"))

	assert.Contains(t, params.Get("success_url_address"), "/payments/return/success")
	assert.Contains(t, params.Get("fail_url_address"), "/payments/return/fail")
	assert.Equal(t, "https://shop.example.com/payments/notify", params.Get("notify_url_address"))
}

func TestBuildPaymentURLIframeNewMode(t *testing.T) {
	t.Setenv("TRANZILA_DIRECT_MODE", "iframenew")
	order := &models.Order{OrderRef: "r", TotalToPay: 12.5}

	raw := BuildPaymentURL(order, "custom")
	assert.True(t, strings.HasPrefix(raw, "https://direct.tranzila.com/custom/iframenew.php?"), raw)
	assert.Contains(t, raw, "sum=12.50")
}

func TestStartPayment(t *testing.T) {
	db := openTestDB(t)

	user := models.User{ID: uuid.NewString(), Username: "buyer", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	order := models.Order{
		OrderRef:   time.Now().Format("20060102150405") + "-" + uuid.NewString(),
		UserID:     user.ID,
		TotalToPay: 20,
		Status:     models.OrderStatusPending,
	}
	require.NoError(t, db.Create(&order).Error)

	iframeURL, err := StartPayment(db, user.ID, StartPaymentRequest{OrderID: order.ID})
	require.NoError(t, err)
	assert.Contains(t, iframeURL, "orderid="+url.QueryEscape(order.OrderRef))

	// Someone else's order is invisible, not forbidden.
	_, err = StartPayment(db, "other-user", StartPaymentRequest{OrderID: order.ID})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	_, err = StartPayment(db, user.ID, StartPaymentRequest{OrderID: 99999})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	// Only pending orders can start a payment.
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", models.OrderStatusPaid).Error)
	_, err = StartPayment(db, user.ID, StartPaymentRequest{OrderID: order.ID})
	assert.True(t, apperr.IsKind(err, apperr.InvalidState))

	// Start never mutates the order.
	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, reloaded.Status)
}
