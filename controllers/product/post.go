package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luxurytech30-cpu/wrap-back/models"
)

type OptionInput struct {
	ID        string   `json:"id"` // empty for new options
	Name      string   `json:"name" binding:"required"`
	BasePrice float64  `json:"base_price"`
	SalePrice *float64 `json:"sale_price"`
	Stock     int      `json:"stock"`
}

type ProductInput struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	CategoryID  uint          `json:"category_id" binding:"required"`
	Image       string        `json:"image"`
	IsTop       bool          `json:"is_top"`
	Options     []OptionInput `json:"options" binding:"required,min=1"`
}

// buildOptions assigns stable ids to new options and preserves the ids of
// existing ones. Position follows array order.
func buildOptions(productID uint, inputs []OptionInput) []models.ProductOption {
	options := make([]models.ProductOption, 0, len(inputs))
	for i, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		options = append(options, models.ProductOption{
			ID:        id,
			ProductID: productID,
			Position:  i,
			Name:      in.Name,
			BasePrice: in.BasePrice,
			SalePrice: in.SalePrice,
			Stock:     in.Stock,
		})
	}
	return options
}

// CreateProduct creates a new product with its option list.
// POST /admin/products
func CreateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ProductInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var category models.Category
		if err := db.First(&category, input.CategoryID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category does not exist"})
			return
		}

		product := models.Product{
			Name:        input.Name,
			Description: input.Description,
			CategoryID:  input.CategoryID,
			Image:       input.Image,
			IsTop:       input.IsTop,
		}
		product.Options = buildOptions(0, input.Options)

		if err := db.Create(&product).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
			return
		}

		var created models.Product
		if err := withOptions(db).First(&created, product.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load created product"})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}
