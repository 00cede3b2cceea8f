package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	paymentControllers "github.com/luxurytech30-cpu/wrap-back/controllers/payment"
	"github.com/luxurytech30-cpu/wrap-back/middleware"
)

// SetupPaymentRoutes registers all "/payments/*" endpoints. Only /start is
// authenticated; the returns and the IPN are called by the gateway and the
// shopper's browser.
func SetupPaymentRoutes(r *gin.Engine, db *gorm.DB) {
	payments := r.Group("/payments")
	{
		payments.POST("/start", middleware.ValidateToken, paymentControllers.StartPaymentHandler(db))

		// Browser returns: redirect only, never mutate
		payments.Any("/return/success", paymentControllers.ReturnSuccessHandler)
		payments.Any("/return/fail", paymentControllers.ReturnFailHandler)

		// Server-to-server notification (GET or POST)
		payments.Any("/notify", paymentControllers.NotifyHandler(db))
	}
}
