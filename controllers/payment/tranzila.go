// Package paymentControllers integrates the Tranzila hosted payment page:
// an outbound iframe URL, passive browser-return redirects, and the
// server-to-server IPN that drives the order state machine.
package paymentControllers

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luxurytech30-cpu/wrap-back/apperr"
	"github.com/luxurytech30-cpu/wrap-back/models"
)

type StartPaymentRequest struct {
	OrderID  uint   `json:"order_id" binding:"required"`
	Supplier string `json:"supplier"` // optional terminal override
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func clientURL() string  { return envOr("CLIENT_URL", "http://localhost:8080") }
func backendURL() string { return envOr("BACKEND_URL", "http://localhost:5000") }

// directBaseURL picks the hosted page variant for the terminal.
func directBaseURL(supplier string) string {
	safe := url.PathEscape(supplier)
	if envOr("TRANZILA_DIRECT_MODE", "iframe") == "iframenew" {
		return "https://direct.tranzila.com/" + safe + "/iframenew.php"
	}
	return "https://direct.tranzila.com/" + safe + "/iframe.php"
}

// BuildPaymentURL constructs the hosted-page URL for a pending order: amount
// fixed to two decimals, currency, language, the order reference, and the
// three callback addresses Tranzila expects.
func BuildPaymentURL(order *models.Order, supplier string) string {
	if supplier == "" {
		supplier = envOr("TRANZILA_SUPPLIER", "tranzilatst")
	}
	supplier = strings.TrimSpace(supplier)

	sum := decimal.NewFromFloat(order.TotalToPay).StringFixed(2)

	params := url.Values{}
	params.Set("sum", sum)
	params.Set("currency", envOr("TRANZILA_CURRENCY", "1"))
	params.Set("orderid", order.OrderRef)
	params.Set("lang", envOr("TRANZILA_LANG", "he"))
	params.Set("success_url_address", backendURL()+"/payments/return/success?orderId="+order.OrderRef)
	params.Set("fail_url_address", backendURL()+"/payments/return/fail?orderId="+order.OrderRef)
	params.Set("notify_url_address", backendURL()+"/payments/notify")

	// Customer details prefill the hosted page.
	params.Set("contact", order.Customer.FullName)
	params.Set("email", order.Customer.Email)
	params.Set("phone", order.Customer.Phone)
	params.Set("city", order.Customer.City)
	params.Set("address", strings.TrimSpace(order.Customer.Street+" "+order.Customer.HouseNumber))
	params.Set("remarks", order.Customer.Notes)
	params.Set("pdesc", "PerfectWrap Order")

	// Single payment, no installments.
	params.Set("cred_type", "1")

	return directBaseURL(supplier) + "?" + params.Encode()
}

// StartPayment checks ownership and state, then returns the iframe URL.
// No state is mutated here; only the IPN moves an order forward.
func StartPayment(db *gorm.DB, userID string, req StartPaymentRequest) (string, error) {
	var order models.Order
	err := db.Where("id = ? AND user_id = ?", req.OrderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.New(apperr.NotFound, "Order not found")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "Failed to load order", err)
	}

	if order.Status != models.OrderStatusPending {
		return "", apperr.New(apperr.InvalidState, "Order is not pending payment")
	}

	return BuildPaymentURL(&order, req.Supplier), nil
}

// -------- Handlers --------

// POST /payments/start
func StartPaymentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var req StartPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
			return
		}
		iframeURL, err := StartPayment(db, userID, req)
		if err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"iframe_url": iframeURL})
	}
}

// The browser returns are untrusted: they only bounce the shopper back to the
// storefront. Order state is owned by the IPN alone.

// ANY /payments/return/success
func ReturnSuccessHandler(c *gin.Context) {
	redirectToClient(c, "/payment-success")
}

// ANY /payments/return/fail
func ReturnFailHandler(c *gin.Context) {
	redirectToClient(c, "/payment-failed")
}

func redirectToClient(c *gin.Context, path string) {
	orderID := c.Query("orderId")
	if orderID == "" {
		orderID = c.PostForm("orderId")
	}

	to := clientURL() + path
	if orderID != "" {
		to += "?orderId=" + url.QueryEscape(orderID)
	}
	c.Redirect(http.StatusFound, to)
}
