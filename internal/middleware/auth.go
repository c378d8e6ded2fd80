package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voxroom/core/internal/models"
	"github.com/voxroom/core/internal/pkg/jwt"
	"github.com/voxroom/core/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
)

// Identity is the verified identity attached to a request or connection.
type Identity struct {
	ID   string
	Name string
	Role string
}

// Auth returns a middleware that enforces JWT authentication and rejects
// banned accounts.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := VerifyIdentity(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, ident.ID)
		c.Set(ContextKeyRole, ident.Role)
		c.Next()
	}
}

// VerifyIdentity validates a bearer credential and resolves the account.
// Banned accounts fail verification so they can never register a connection.
func VerifyIdentity(db *gorm.DB, rawToken string) (*Identity, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}

	claims, err := jwt.Parse(token)
	if err != nil {
		return nil, err
	}

	var user models.UserModel
	if err := db.Select("id, name, role, status").First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, errors.New("identity not found")
	}
	if user.IsBanned() {
		return nil, errors.New("identity is banned")
	}

	role := claims.Role
	if role == "" {
		role = user.Role
	}
	return &Identity{ID: user.ID, Name: user.Name, Role: role}, nil
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
