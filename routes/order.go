package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderControllers "github.com/luxurytech30-cpu/wrap-back/controllers/order"
	"github.com/luxurytech30-cpu/wrap-back/middleware"
)

// SetupOrderRoutes registers the customer-facing "/orders/*" endpoints.
func SetupOrderRoutes(r *gin.Engine, db *gorm.DB) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		// Materialize the cart into a pending order
		orders.POST("/checkout", orderControllers.CheckoutHandler(db))

		// Own order history (failed orders hidden)
		orders.GET("/my", orderControllers.GetMyOrdersHandler(db))

		// Cancel a pending order within the 2-hour window
		orders.PATCH("/:orderID/cancel", orderControllers.CancelOrderHandler(db))
	}
}
