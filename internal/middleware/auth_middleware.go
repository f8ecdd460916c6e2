package middleware

import (
	"context"
	"strings"

	"tubequiz/internal/dto"
	"tubequiz/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	AuthorizationHeader = "Authorization"
	BearerSchema        = "Bearer "
	UserIDKey           = "userID" // Key for storing UserID in fiber.Ctx locals

	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	tokenTypeAccess = "access"
	msgNotAuthed    = "Authentication credentials were not provided."
)

// TokenValidator validates a signed JWT and returns its claims.
type TokenValidator interface {
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
}

// Protected rejects requests without a valid access token. The token is read
// from the access_token cookie, falling back to an Authorization: Bearer header.
func Protected(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractAccessToken(c)
		if tokenString == "" {
			return unauthorized(c)
		}

		claims, err := validator.ValidateJWT(c.UserContext(), tokenString)
		if err != nil {
			logger.Get().Debug("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			return unauthorized(c)
		}
		if claims.TokenType != tokenTypeAccess {
			logger.Get().Debug("Rejected non-access token", zap.String("tokenType", claims.TokenType))
			return unauthorized(c)
		}

		c.Locals(UserIDKey, claims.UserID)
		return c.Next()
	}
}

// GetUserID returns the authenticated user id stored by Protected.
func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(UserIDKey).(string)
	return userID
}

func extractAccessToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(AccessTokenCookie)); token != "" {
		return token
	}
	authHeader := c.Get(AuthorizationHeader)
	if !strings.HasPrefix(authHeader, BearerSchema) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, BearerSchema))
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Detail: msgNotAuthed})
}
