package authControllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/luxurytech30-cpu/wrap-back/middleware"
	"github.com/luxurytech30-cpu/wrap-back/models"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	r := gin.New()
	r.POST("/auth/register", Register(db))
	r.POST("/auth/login", Login(db))
	r.GET("/auth/me", middleware.ValidateToken, Me(db))
	return r, db
}

func doJSON(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	r, db := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/auth/register", `{"username":"dana","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Password is stored hashed, never in the clear.
	var user models.User
	require.NoError(t, db.First(&user, "username = ?", "dana").Error)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Equal(t, models.RoleCustomer, user.Role)

	// Duplicate username is rejected.
	w = doJSON(r, http.MethodPost, "/auth/register", `{"username":"dana","password":"secret1"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", `{"username":"dana","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	require.Contains(t, body, `"token"`)

	token := extractToken(t, body)
	w = doJSON(r, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"dana"`)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/auth/register", `{"username":"dana","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", `{"username":"dana","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/auth/login", `{"username":"nobody","password":"secret1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/auth/me", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func extractToken(t *testing.T, body string) string {
	t.Helper()
	const marker = `"token":"`
	start := strings.Index(body, marker)
	require.GreaterOrEqual(t, start, 0, "token missing in %s", body)
	rest := body[start+len(marker):]
	end := strings.Index(rest, `"`)
	require.Greater(t, end, 0)
	return rest[:end]
}
