package cartControllers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luxurytech30-cpu/wrap-back/apperr"
	"github.com/luxurytech30-cpu/wrap-back/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// One in-memory database per test: keep the pool on a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Product{}, &models.ProductOption{},
		&models.CartItem{}, &models.Order{}, &models.OrderItem{},
	))
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) (*models.User, *models.Product) {
	t.Helper()

	user := models.User{ID: uuid.NewString(), Username: "u-" + uuid.NewString()[:8], PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	category := models.Category{Name: "cat-" + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&category).Error)

	sale := 8.0
	product := models.Product{
		Name:       "Gift Box",
		CategoryID: category.ID,
		Image:      "/img/box.png",
		Options: []models.ProductOption{
			{ID: uuid.NewString(), Position: 0, Name: "Small", BasePrice: 10, SalePrice: &sale, Stock: 5},
			{ID: uuid.NewString(), Position: 1, Name: "Large", BasePrice: 20, Stock: 3},
		},
	}
	require.NoError(t, db.Create(&product).Error)
	return &user, &product
}

func TestAddItemMergesQuantities(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)
	optionID := product.Options[0].ID

	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: optionID, Quantity: 1}))
	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: optionID, Quantity: 2}))

	cart, err := LoadCart(db, user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity)
	assert.Equal(t, 8.0, cart[0].UnitPrice, "sale price wins over base price")
	assert.Equal(t, "Small", cart[0].OptionName)
}

func TestAddItemByLegacyIndex(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)

	index := 1
	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionIndex: &index, Quantity: 1}))

	cart, err := LoadCart(db, user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, "Large", cart[0].OptionName)
	assert.Equal(t, product.Options[1].ID, cart[0].OptionID, "legacy index is upgraded to the stable id")
}

func TestAddItemUnknownProductOrOption(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)

	err := AddItem(db, user.ID, CartItemInput{ProductID: 9999, OptionID: "x", Quantity: 1})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	err = AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: "no-such-option", Quantity: 1})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestSetQuantityAndRemoveAtZero(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)
	optionID := product.Options[0].ID

	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: optionID, Quantity: 2}))
	require.NoError(t, SetQuantity(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: optionID, Quantity: 5}))

	cart, err := LoadCart(db, user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 5, cart[0].Quantity)

	require.NoError(t, SetQuantity(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: optionID, Quantity: 0}))
	cart, err = LoadCart(db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestSetNoteTrimsAndCaps(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)
	optionID := product.Options[0].ID

	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: optionID, Quantity: 1}))

	long := "  " + strings.Repeat("a", models.MaxItemNoteLength+100) + "  "
	require.NoError(t, SetNote(db, user.ID, CartNoteInput{ProductID: product.ID, OptionID: optionID, ItemNote: long}))

	cart, err := LoadCart(db, user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Len(t, cart[0].ItemNote, models.MaxItemNoteLength)

	err = SetNote(db, user.ID, CartNoteInput{ProductID: 9999, OptionID: optionID, ItemNote: "hi"})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestSetNoteCapsOnRuneBoundary(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)
	optionID := product.Options[0].ID

	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: optionID, Quantity: 1}))

	// Hebrew characters are two bytes each; a byte-indexed cap would cut one
	// in half and store invalid UTF-8.
	long := "a" + strings.Repeat("ש", models.MaxItemNoteLength)
	require.NoError(t, SetNote(db, user.ID, CartNoteInput{ProductID: product.ID, OptionID: optionID, ItemNote: long}))

	cart, err := LoadCart(db, user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.True(t, utf8.ValidString(cart[0].ItemNote))
	assert.Equal(t, models.MaxItemNoteLength, len([]rune(cart[0].ItemNote)))
	assert.True(t, strings.HasPrefix(cart[0].ItemNote, "aש"))
}

func TestLoadCartDropsVanishedProducts(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)

	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: product.Options[0].ID, Quantity: 1}))
	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: product.Options[1].ID, Quantity: 1}))

	// Admin deletes one option; the stale cart line disappears on read.
	require.NoError(t, db.Delete(&models.ProductOption{}, "id = ?", product.Options[1].ID).Error)

	cart, err := LoadCart(db, user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, "Small", cart[0].OptionName)

	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count, "the stale row is removed from storage too")
}

func TestClear(t *testing.T) {
	db := openTestDB(t)
	user, product := seedCatalog(t, db)

	require.NoError(t, AddItem(db, user.ID, CartItemInput{ProductID: product.ID, OptionID: product.Options[0].ID, Quantity: 1}))
	require.NoError(t, Clear(db, user.ID))

	cart, err := LoadCart(db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart)
}
