package handler

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
	"tubequiz/internal/logger"
	"tubequiz/internal/middleware"
	"tubequiz/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	oauthStateCookieName = "oauthstate"

	msgRegistered = "User created successfully!"
	msgLoggedIn   = "Login successfully!"
	msgLoggedOut  = "Log-Out successfully! All Tokens will be deleted. Refresh token is now invalid."
	msgRefreshed  = "Token refreshed"
)

type AuthHandler struct {
	authService service.AuthService
	cookieCfg   config.CookieConfig
}

func NewAuthHandler(authService service.AuthService, appConfig *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookieCfg:   appConfig.Cookie,
	}
}

// Register creates a new account.
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "Registration form"
// @Success 201 {object} dto.MessageResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /register/ [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Detail: "Invalid request body"})
	}
	if _, err := h.authService.Register(c.UserContext(), req); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Detail: msgRegistered})
}

// Login authenticates with username or email and sets the JWT cookies.
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /login/ [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewUnauthorizedError("Invalid credentials.")
	}

	user, tokens, err := h.authService.Login(c.UserContext(), req.Identifier(), req.Password)
	if err != nil {
		return err
	}
	return h.respondWithSession(c, user, tokens)
}

// Logout revokes the refresh token and clears both cookies.
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} dto.MessageResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security CookieAuth
// @Router /logout/ [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	appLogger := logger.Get()
	userID := middleware.GetUserID(c)

	if err := h.authService.Logout(c.UserContext(), c.Cookies(middleware.RefreshTokenCookie)); err != nil {
		appLogger.Error("Failed to revoke refresh token on logout", zap.String("userID", userID), zap.Error(err))
	}
	appLogger.Info("User logged out", zap.String("userID", userID))

	clearJWTCookies(c, h.cookieCfg)
	return c.Status(fiber.StatusOK).JSON(dto.MessageResponse{Detail: msgLoggedOut})
}

// RefreshToken issues a new access token from the refresh_token cookie.
// @Summary Refresh the access token
// @Tags auth
// @Produce json
// @Success 200 {object} dto.RefreshResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /token/refresh/ [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	access, err := h.authService.RefreshAccessToken(c.UserContext(), c.Cookies(middleware.RefreshTokenCookie))
	if err != nil {
		return err
	}
	setAccessCookie(c, h.cookieCfg, access)
	return c.Status(fiber.StatusOK).JSON(dto.RefreshResponse{Detail: msgRefreshed, Access: access})
}

// GoogleLogin initiates the Google OAuth2 login flow.
// @Summary Initiate Google Login
// @Description Redirects the user to Google's OAuth2 consent page.
// @Tags auth
// @Success 307 {string} string "Redirects to Google"
// @Router /auth/google/login [get]
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return domain.NewInternalError("could not generate oauth state", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   h.cookieCfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	return c.Redirect(h.authService.GetGoogleLoginURL(state), fiber.StatusTemporaryRedirect)
}

// GoogleCallback handles the callback from Google OAuth2.
// @Summary Google OAuth2 Callback
// @Description Logs the Google user in, linking or creating the account, and sets the JWT cookies.
// @Tags auth
// @Param code query string true "Authorization code from Google"
// @Param state query string true "State string for CSRF protection"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	receivedState := c.Query("state")
	expectedState := c.Cookies(oauthStateCookieName)

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cookieCfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	if code == "" {
		logger.Get().Warn("Authorization code missing in Google OAuth callback")
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Detail: "Authorization code is missing."})
	}

	user, tokens, err := h.authService.HandleGoogleCallback(c.UserContext(), code, receivedState, expectedState)
	if err != nil {
		return err
	}
	return h.respondWithSession(c, user, tokens)
}

func (h *AuthHandler) respondWithSession(c *fiber.Ctx, user *domain.User, tokens *dto.TokenPair) error {
	setAccessCookie(c, h.cookieCfg, tokens.AccessToken)
	setRefreshCookie(c, h.cookieCfg, tokens.RefreshToken)
	return c.Status(fiber.StatusOK).JSON(dto.LoginResponse{
		Detail: msgLoggedIn,
		User:   dto.UserResponse{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}
