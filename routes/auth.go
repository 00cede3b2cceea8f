package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authControllers "github.com/luxurytech30-cpu/wrap-back/controllers/auth"
	"github.com/luxurytech30-cpu/wrap-back/middleware"
)

// SetupAuthRoutes registers all "/auth/*" endpoints.
func SetupAuthRoutes(r *gin.Engine, db *gorm.DB) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authControllers.Register(db))
		authGroup.POST("/login", authControllers.Login(db))
		authGroup.GET("/me", middleware.ValidateToken, authControllers.Me(db))
	}
}
