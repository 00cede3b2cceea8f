package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	cartControllers "github.com/luxurytech30-cpu/wrap-back/controllers/cart"
	"github.com/luxurytech30-cpu/wrap-back/middleware"
)

// SetupCartRoutes registers all "/cart/*" endpoints. Requires JWT middleware.
func SetupCartRoutes(r *gin.Engine, db *gorm.DB) {
	cartGroup := r.Group("/cart")
	cartGroup.Use(middleware.ValidateToken)
	{
		cartGroup.GET("/", cartControllers.GetUserCart(db))
		cartGroup.POST("/add", cartControllers.AddCartItem(db))
		cartGroup.PATCH("/update", cartControllers.UpdateCartItem(db))
		cartGroup.PATCH("/note", cartControllers.UpdateCartNote(db))
		cartGroup.DELETE("/item", cartControllers.DeleteCartItem(db))
		cartGroup.DELETE("/clear", cartControllers.ClearUserCart(db))
	}
}
