package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tubequiz/internal/cache"
	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
	"tubequiz/internal/logger"
	"tubequiz/internal/util"
	"tubequiz/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	TokenTypeAccess   = "access"
	TokenTypeRefresh  = "refresh"
)

const (
	msgInvalidCredentials = "Invalid credentials."
	msgRefreshInvalid     = "Refresh token invalid or expired."
)

var (
	ErrInvalidAuthState      = errors.New("invalid oauth state")
	ErrFailedToExchangeToken = errors.New("failed to exchange oauth token")
	ErrFailedToGetUserInfo   = errors.New("failed to get user info from google")
	ErrInvalidJWTToken       = errors.New("invalid jwt token")
)

// AuthService defines the interface for authentication operations.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, identifier, password string) (*domain.User, *dto.TokenPair, error)
	// Logout revokes the refresh token until it expires. Invalid tokens are ignored.
	Logout(ctx context.Context, refreshToken string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	GetGoogleLoginURL(state string) string
	HandleGoogleCallback(ctx context.Context, code, receivedState, expectedState string) (*domain.User, *dto.TokenPair, error)
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
	CreateJWT(ctx context.Context, user *domain.User, ttl time.Duration, tokenType string) (string, error)
}

type authServiceImpl struct {
	userRepo     domain.UserRepository
	cache        domain.Cache
	validator    *validation.Validator
	oauth2Config *oauth2.Config
	userInfoURL  string
	jwtConfig    config.JWTConfig
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(userRepo domain.UserRepository, cache domain.Cache, appConfig *config.Config) (AuthService, error) {
	if appConfig.JWT.SecretKey == "" {
		return nil, errors.New("jwt secret key is not configured")
	}
	jwtCfg := appConfig.JWT
	if jwtCfg.AccessTokenTTL <= 0 {
		jwtCfg.AccessTokenTTL = 30 * time.Minute
	}
	if jwtCfg.RefreshTokenTTL <= 0 {
		jwtCfg.RefreshTokenTTL = 24 * time.Hour
	}

	return &authServiceImpl{
		userRepo:  userRepo,
		cache:     cache,
		validator: validation.NewValidator(),
		oauth2Config: &oauth2.Config{
			ClientID:     appConfig.GoogleOAuth.ClientID,
			ClientSecret: appConfig.GoogleOAuth.ClientSecret,
			RedirectURL:  appConfig.GoogleOAuth.RedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		jwtConfig:   jwtCfg,
	}, nil
}

func (s *authServiceImpl) Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error) {
	if errs := s.validator.ValidateRegisterRequest(req); len(errs) > 0 {
		return nil, errs
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up email", err)
	}
	if existing != nil {
		return nil, domain.ValidationErrors{domain.NewFieldError("email", "Email already exists.")}
	}
	existing, err = s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up username", err)
	}
	if existing != nil {
		return nil, domain.ValidationErrors{domain.NewFieldError("username", "A user with that username already exists.")}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewInternalError("failed to hash password", err)
	}

	user := domain.NewUser(req.Username, req.Email)
	user.PasswordHash = string(hash)
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logger.Get().Info("User registered", zap.String("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *authServiceImpl) Login(ctx context.Context, identifier, password string) (*domain.User, *dto.TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil, domain.NewUnauthorizedError(msgInvalidCredentials)
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetUserByEmail(ctx, identifier)
	} else {
		user, err = s.userRepo.GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, nil, domain.NewInternalError("failed to look up user", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil, domain.NewUnauthorizedError(msgInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Get().Info("Login rejected", zap.String("userID", user.ID))
		return nil, nil, domain.NewUnauthorizedError(msgInvalidCredentials)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	logger.Get().Info("User logged in", zap.String("userID", user.ID))
	return user, tokens, nil
}

func (s *authServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	claims, err := s.ValidateJWT(ctx, refreshToken)
	if err != nil || claims.TokenType != TokenTypeRefresh || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, cache.RevokedTokenKey(claims.ID), claims.UserID, ttl); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	logger.Get().Info("Refresh token revoked", zap.String("userID", claims.UserID), zap.String("jti", claims.ID))
	return nil
}

func (s *authServiceImpl) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	appLogger := logger.Get()
	if strings.TrimSpace(refreshToken) == "" {
		return "", domain.NewUnauthorizedError(msgRefreshInvalid)
	}
	claims, err := s.ValidateJWT(ctx, refreshToken)
	if err != nil {
		return "", domain.NewUnauthorizedError(msgRefreshInvalid)
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", domain.NewUnauthorizedError(msgRefreshInvalid)
	}

	revoked, err := s.cache.Exists(ctx, cache.RevokedTokenKey(claims.ID))
	if err != nil {
		// Fail closed: a refresh token we cannot check is not honoured.
		appLogger.Error("Failed to check refresh token revocation", zap.String("jti", claims.ID), zap.Error(err))
		return "", domain.NewUnauthorizedError(msgRefreshInvalid)
	}
	if revoked {
		appLogger.Warn("Revoked refresh token presented", zap.String("userID", claims.UserID))
		return "", domain.NewUnauthorizedError(msgRefreshInvalid)
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return "", domain.NewInternalError("failed to load user for refresh token", err)
	}
	if user == nil {
		appLogger.Warn("User not found for refresh token", zap.String("userID", claims.UserID))
		return "", domain.NewUnauthorizedError(msgRefreshInvalid)
	}

	access, err := s.CreateJWT(ctx, user, s.jwtConfig.AccessTokenTTL, TokenTypeAccess)
	if err != nil {
		return "", domain.NewInternalError("failed to create access token", err)
	}
	appLogger.Info("JWT token refreshed", zap.String("userID", user.ID))
	return access, nil
}

func (s *authServiceImpl) GetGoogleLoginURL(state string) string {
	return s.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authServiceImpl) HandleGoogleCallback(ctx context.Context, code, receivedState, expectedState string) (*domain.User, *dto.TokenPair, error) {
	appLogger := logger.Get()
	if receivedState == "" || receivedState != expectedState {
		return nil, nil, domain.NewError(domain.ErrUnauthorized, "Invalid OAuth state.", ErrInvalidAuthState)
	}

	googleToken, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, domain.NewError(domain.ErrUnauthorized, "Google login failed.", fmt.Errorf("%w: %v", ErrFailedToExchangeToken, err))
	}

	userInfo, err := s.fetchGoogleUserInfo(ctx, googleToken)
	if err != nil {
		return nil, nil, domain.NewError(domain.ErrUnauthorized, "Google login failed.", err)
	}

	user, err := s.userRepo.GetUserByGoogleID(ctx, userInfo.ID)
	if err != nil {
		return nil, nil, domain.NewInternalError("error fetching user by google_id", err)
	}
	if user == nil {
		user, err = s.linkOrCreateGoogleUser(ctx, userInfo)
		if err != nil {
			return nil, nil, err
		}
	} else {
		appLogger.Info("User logged in via Google OAuth", zap.String("userID", user.ID), zap.String("email", user.Email))
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *authServiceImpl) fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*dto.GoogleUserInfo, error) {
	client := s.oauth2Config.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToGetUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrFailedToGetUserInfo, resp.StatusCode)
	}

	var userInfo dto.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if userInfo.ID == "" || userInfo.Email == "" {
		return nil, errors.New("google user info is incomplete")
	}
	return &userInfo, nil
}

// linkOrCreateGoogleUser attaches the Google account to the user with the same
// email, or creates a new password-less user.
func (s *authServiceImpl) linkOrCreateGoogleUser(ctx context.Context, info *dto.GoogleUserInfo) (*domain.User, error) {
	appLogger := logger.Get()

	user, err := s.userRepo.GetUserByEmail(ctx, info.Email)
	if err != nil {
		return nil, domain.NewInternalError("error fetching user by email", err)
	}
	if user != nil {
		user.GoogleID = info.ID
		user.UpdatedAt = time.Now()
		if err := s.userRepo.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		appLogger.Info("Linked Google account to existing user", zap.String("userID", user.ID))
		return user, nil
	}

	username, err := s.availableUsername(ctx, info.Email)
	if err != nil {
		return nil, err
	}
	user = domain.NewUser(username, info.Email)
	user.GoogleID = info.ID
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	appLogger.Info("New user created via Google OAuth", zap.String("userID", user.ID), zap.String("email", user.Email))
	return user, nil
}

// availableUsername derives a username from the email local part, adding a
// random suffix when it is taken.
func (s *authServiceImpl) availableUsername(ctx context.Context, email string) (string, error) {
	base := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		base = email[:i]
	}
	candidate := base
	for attempt := 0; attempt < 3; attempt++ {
		existing, err := s.userRepo.GetUserByUsername(ctx, candidate)
		if err != nil {
			return "", domain.NewInternalError("error checking username", err)
		}
		if existing == nil {
			return candidate, nil
		}
		id := util.NewULID()
		candidate = base + "_" + strings.ToLower(id[len(id)-6:])
	}
	return "", domain.NewConflictError("Could not derive a free username.")
}

func (s *authServiceImpl) issueTokens(ctx context.Context, user *domain.User) (*dto.TokenPair, error) {
	access, err := s.CreateJWT(ctx, user, s.jwtConfig.AccessTokenTTL, TokenTypeAccess)
	if err != nil {
		return nil, domain.NewInternalError("failed to create access token", err)
	}
	refresh, err := s.CreateJWT(ctx, user, s.jwtConfig.RefreshTokenTTL, TokenTypeRefresh)
	if err != nil {
		return nil, domain.NewInternalError("failed to create refresh token", err)
	}
	return &dto.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authServiceImpl) CreateJWT(ctx context.Context, user *domain.User, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now()
	claims := dto.AuthClaims{
		UserID:    user.ID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        util.NewULID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtConfig.SecretKey))
}

func (s *authServiceImpl) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Debug("JWT token expired", zap.Error(err))
		} else {
			logger.Get().Warn("JWT validation failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	if claims, ok := token.Claims.(*dto.AuthClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidJWTToken
}
