package cartControllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/luxurytech30-cpu/wrap-back/apperr"
	"github.com/luxurytech30-cpu/wrap-back/models"
)

type CartItemInput struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	OptionID    string `json:"option_id"`
	OptionIndex *int   `json:"option_index"`
	Quantity    int    `json:"quantity"`
}

type CartNoteInput struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	OptionID    string `json:"option_id"`
	OptionIndex *int   `json:"option_index"`
	ItemNote    string `json:"item_note"`
}

// CartItemDTO is a cart line with the product and option resolved against the
// current catalog, so the client always sees the live price.
type CartItemDTO struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	OptionID    string  `json:"option_id"`
	OptionIndex int     `json:"option_index"`
	OptionName  string  `json:"option_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	ItemNote    string  `json:"item_note"`
	Image       string  `json:"image"`
}

// LoadCart returns the user's cart resolved against the catalog. Lines whose
// product or option no longer exists are removed from the cart as a side
// effect, matching what the storefront expects after an admin deletion.
func LoadCart(db *gorm.DB, userID string) ([]CartItemDTO, error) {
	var items []models.CartItem
	if err := db.Where("user_id = ?", userID).Order("added_at").Find(&items).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Failed to fetch cart", err)
	}

	dtos := make([]CartItemDTO, 0, len(items))
	for _, item := range items {
		var product models.Product
		err := db.Preload("Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position")
		}).First(&product, item.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			db.Delete(&models.CartItem{}, item.ID)
			continue
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "Failed to resolve cart item", err)
		}

		option := models.ResolveOption(&product, item.OptionID, item.OptionIndex)
		if option == nil {
			db.Delete(&models.CartItem{}, item.ID)
			continue
		}

		dtos = append(dtos, CartItemDTO{
			ProductID:   product.ID,
			ProductName: product.Name,
			OptionID:    option.ID,
			OptionIndex: option.Position,
			OptionName:  option.Name,
			UnitPrice:   option.UnitPrice(),
			Quantity:    item.Quantity,
			ItemNote:    item.ItemNote,
			Image:       product.Image,
		})
	}
	return dtos, nil
}

// AddItem adds a selection to the cart, merging quantities when the same
// (product, option) pair is already present.
func AddItem(db *gorm.DB, userID string, input CartItemInput) error {
	if input.Quantity <= 0 {
		input.Quantity = 1
	}

	var product models.Product
	if err := db.Preload("Options").First(&product, input.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Product does not exist")
		}
		return apperr.Wrap(apperr.Internal, "Failed to validate product", err)
	}

	index := 0
	if input.OptionIndex != nil {
		index = *input.OptionIndex
	}
	option := models.ResolveOption(&product, input.OptionID, index)
	if option == nil {
		return apperr.New(apperr.NotFound, "Product option does not exist")
	}

	var item models.CartItem
	err := db.Where("user_id = ? AND product_id = ? AND option_id = ?",
		userID, product.ID, option.ID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.CartItem{
			UserID:      userID,
			ProductID:   product.ID,
			OptionID:    option.ID,
			OptionIndex: option.Position,
			Quantity:    input.Quantity,
			AddedAt:     time.Now(),
		}).Error
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Failed to fetch cart item", err)
	}

	item.Quantity += input.Quantity
	item.AddedAt = time.Now()
	return db.Save(&item).Error
}

// SetQuantity updates a cart line; a quantity of zero or less removes it.
func SetQuantity(db *gorm.DB, userID string, input CartItemInput) error {
	item, err := findItem(db, userID, input.ProductID, input.OptionID, input.OptionIndex)
	if err != nil {
		return err
	}
	if input.Quantity <= 0 {
		return db.Delete(item).Error
	}
	item.Quantity = input.Quantity
	return db.Save(item).Error
}

// SetNote updates the free-text note on a cart line, trimmed and capped.
func SetNote(db *gorm.DB, userID string, input CartNoteInput) error {
	item, err := findItem(db, userID, input.ProductID, input.OptionID, input.OptionIndex)
	if err != nil {
		return err
	}
	note := strings.TrimSpace(input.ItemNote)
	// Cap by characters, not bytes: a byte slice could split a multi-byte
	// rune and leave the note invalid UTF-8.
	if runes := []rune(note); len(runes) > models.MaxItemNoteLength {
		note = string(runes[:models.MaxItemNoteLength])
	}
	item.ItemNote = note
	return db.Save(item).Error
}

// RemoveItem deletes a single cart line.
func RemoveItem(db *gorm.DB, userID string, productID uint, optionID string, optionIndex *int) error {
	item, err := findItem(db, userID, productID, optionID, optionIndex)
	if err != nil {
		return err
	}
	return db.Delete(item).Error
}

// Clear empties the user's cart.
func Clear(db *gorm.DB, userID string) error {
	return db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func findItem(db *gorm.DB, userID string, productID uint, optionID string, optionIndex *int) (*models.CartItem, error) {
	q := db.Where("user_id = ? AND product_id = ?", userID, productID)
	if optionID != "" {
		q = q.Where("option_id = ?", optionID)
	} else if optionIndex != nil {
		q = q.Where("option_index = ?", *optionIndex)
	} else {
		return nil, apperr.New(apperr.Validation, "option_id or option_index is required")
	}

	var item models.CartItem
	if err := q.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "Cart item not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "Failed to fetch cart item", err)
	}
	return &item, nil
}

// -------- Handlers --------

// GET /cart
func GetUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		dto, err := LoadCart(db, userID)
		if err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dto)
	}
}

// POST /cart/add
func AddCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if err := AddItem(db, userID, input); err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		respondCart(c, db, userID, "Added to cart")
	}
}

// PATCH /cart/update
func UpdateCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if err := SetQuantity(db, userID, input); err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		respondCart(c, db, userID, "Cart updated")
	}
}

// PATCH /cart/note
func UpdateCartNote(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var input CartNoteInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if err := SetNote(db, userID, input); err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		respondCart(c, db, userID, "Note updated")
	}
}

// DELETE /cart/item
func DeleteCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if err := RemoveItem(db, userID, input.ProductID, input.OptionID, input.OptionIndex); err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		respondCart(c, db, userID, "Cart item removed")
	}
}

// DELETE /cart/clear
func ClearUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if err := Clear(db, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared", "cart": []CartItemDTO{}})
	}
}

// GET /admin/user-cart/:user_id
func GetAdminUserCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		dto, err := LoadCart(db, userID)
		if err != nil {
			c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dto)
	}
}

func respondCart(c *gin.Context, db *gorm.DB, userID, message string) {
	dto, err := LoadCart(db, userID)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "cart": dto})
}
