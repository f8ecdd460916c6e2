package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tubequiz/internal/cache"
	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/dto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const testSecret = "testsecretkeydontuseinproduction32bytes!"

func testAuthConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:       testSecret,
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		GoogleOAuth: config.GoogleOAuthConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8090/api/auth/google/callback",
		},
	}
}

func newTestAuthService(t *testing.T) (*authServiceImpl, *MockUserRepository, *MockCache) {
	t.Helper()
	repo := new(MockUserRepository)
	c := new(MockCache)
	svc, err := NewAuthService(repo, c, testAuthConfig())
	require.NoError(t, err)
	return svc.(*authServiceImpl), repo, c
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	_, err := NewAuthService(new(MockUserRepository), new(MockCache), &config.Config{})
	assert.Error(t, err)
}

func TestNewAuthService_DefaultTTLs(t *testing.T) {
	svc, err := NewAuthService(new(MockUserRepository), new(MockCache), &config.Config{JWT: config.JWTConfig{SecretKey: "s"}})
	require.NoError(t, err)
	impl := svc.(*authServiceImpl)
	assert.Equal(t, 30*time.Minute, impl.jwtConfig.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, impl.jwtConfig.RefreshTokenTTL)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	req := dto.RegisterRequest{
		Username:          "newuser",
		Email:             "new@user.de",
		Password:          "Newpassword123!",
		ConfirmedPassword: "Newpassword123!",
	}

	t.Run("success hashes the password", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByEmail", ctx, "new@user.de").Return(nil, nil).Once()
		repo.On("GetUserByUsername", ctx, "newuser").Return(nil, nil).Once()
		repo.On("CreateUser", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "newuser" &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Newpassword123!")) == nil
		})).Return(nil).Once()

		user, err := svc.Register(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "new@user.de", user.Email)
		assert.NotEqual(t, "Newpassword123!", user.PasswordHash)
		repo.AssertExpectations(t)
	})

	t.Run("email already exists", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByEmail", ctx, "new@user.de").Return(&domain.User{ID: "u1", Email: "NEW@user.de"}, nil).Once()

		_, err := svc.Register(ctx, req)
		var verrs domain.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "email", verrs[0].Field)
		assert.Equal(t, "Email already exists.", verrs[0].Message)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("username taken", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByEmail", ctx, "new@user.de").Return(nil, nil).Once()
		repo.On("GetUserByUsername", ctx, "newuser").Return(&domain.User{ID: "u1"}, nil).Once()

		_, err := svc.Register(ctx, req)
		var verrs domain.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "username", verrs[0].Field)
	})

	t.Run("passwords do not match", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		bad := req
		bad.ConfirmedPassword = "other"

		_, err := svc.Register(ctx, bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Passwords do not match.")
		repo.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByEmail", ctx, "new@user.de").Return(nil, errors.New("db down")).Once()

		_, err := svc.Register(ctx, req)
		assert.True(t, domain.HasCode(err, domain.ErrInternal))
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	olivia := func() *domain.User {
		return &domain.User{ID: "01HUSER", Username: "olivia", Email: "olivia@example.com", PasswordHash: hashed(t, "Password123!")}
	}

	t.Run("by username", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByUsername", ctx, "olivia").Return(olivia(), nil).Once()

		user, tokens, err := svc.Login(ctx, "olivia", "Password123!")
		require.NoError(t, err)
		assert.Equal(t, "01HUSER", user.ID)
		require.NotNil(t, tokens)

		access, err := svc.ValidateJWT(ctx, tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeAccess, access.TokenType)
		refresh, err := svc.ValidateJWT(ctx, tokens.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
		assert.NotEqual(t, access.ID, refresh.ID)
	})

	t.Run("by email", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByEmail", ctx, "Olivia@Example.com").Return(olivia(), nil).Once()

		_, tokens, err := svc.Login(ctx, "Olivia@Example.com", "Password123!")
		require.NoError(t, err)
		assert.NotEmpty(t, tokens.AccessToken)
		repo.AssertNotCalled(t, "GetUserByUsername", mock.Anything, mock.Anything)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByUsername", ctx, "olivia").Return(olivia(), nil).Once()

		_, _, err := svc.Login(ctx, "olivia", "WrongPassword123!")
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
		assert.Equal(t, "Invalid credentials.", err.Error())
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByUsername", ctx, "ghost").Return(nil, nil).Once()

		_, _, err := svc.Login(ctx, "ghost", "Password123!")
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
	})

	t.Run("google-only account has no password", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		repo.On("GetUserByUsername", ctx, "olivia").Return(&domain.User{ID: "01HUSER", Username: "olivia"}, nil).Once()

		_, _, err := svc.Login(ctx, "olivia", "anything")
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		_, _, err := svc.Login(ctx, "olivia", "")
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
		_, _, err = svc.Login(ctx, "", "Password123!")
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
		repo.AssertExpectations(t)
	})
}

func TestAuthService_ValidateJWT(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuthService(t)
	user := &domain.User{ID: "user123"}

	t.Run("expired", func(t *testing.T) {
		token, err := svc.CreateJWT(ctx, user, -time.Minute, TokenTypeAccess)
		require.NoError(t, err)
		_, err = svc.ValidateJWT(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidJWTToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		claims := dto.AuthClaims{UserID: "user123", TokenType: TokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		require.NoError(t, err)
		_, err = svc.ValidateJWT(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidJWTToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateJWT(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidJWTToken)
	})

	t.Run("valid carries jti and subject", func(t *testing.T) {
		token, err := svc.CreateJWT(ctx, user, time.Minute, TokenTypeAccess)
		require.NoError(t, err)
		claims, err := svc.ValidateJWT(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "user123", claims.UserID)
		assert.Equal(t, "user123", claims.Subject)
		assert.Len(t, claims.ID, 26)
	})
}

func TestAuthService_RefreshAccessToken(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: "user123", Username: "u"}

	t.Run("success", func(t *testing.T) {
		svc, repo, c := newTestAuthService(t)
		refresh, err := svc.CreateJWT(ctx, user, time.Hour, TokenTypeRefresh)
		require.NoError(t, err)
		claims, _ := svc.ValidateJWT(ctx, refresh)

		c.On("Exists", ctx, cache.RevokedTokenKey(claims.ID)).Return(false, nil).Once()
		repo.On("GetUserByID", ctx, "user123").Return(user, nil).Once()

		access, err := svc.RefreshAccessToken(ctx, refresh)
		require.NoError(t, err)
		accessClaims, err := svc.ValidateJWT(ctx, access)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeAccess, accessClaims.TokenType)
		c.AssertExpectations(t)
	})

	t.Run("revoked", func(t *testing.T) {
		svc, repo, c := newTestAuthService(t)
		refresh, _ := svc.CreateJWT(ctx, user, time.Hour, TokenTypeRefresh)
		c.On("Exists", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()

		_, err := svc.RefreshAccessToken(ctx, refresh)
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
		assert.Equal(t, "Refresh token invalid or expired.", err.Error())
		repo.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("cache unavailable", func(t *testing.T) {
		svc, _, c := newTestAuthService(t)
		refresh, _ := svc.CreateJWT(ctx, user, time.Hour, TokenTypeRefresh)
		c.On("Exists", ctx, mock.AnythingOfType("string")).Return(false, errors.New("connection refused")).Once()

		_, err := svc.RefreshAccessToken(ctx, refresh)
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
	})

	t.Run("access token presented", func(t *testing.T) {
		svc, _, c := newTestAuthService(t)
		access, _ := svc.CreateJWT(ctx, user, time.Hour, TokenTypeAccess)

		_, err := svc.RefreshAccessToken(ctx, access)
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
		c.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	})

	t.Run("user deleted", func(t *testing.T) {
		svc, repo, c := newTestAuthService(t)
		refresh, _ := svc.CreateJWT(ctx, user, time.Hour, TokenTypeRefresh)
		c.On("Exists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
		repo.On("GetUserByID", ctx, "user123").Return(nil, nil).Once()

		_, err := svc.RefreshAccessToken(ctx, refresh)
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
	})

	t.Run("empty", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		_, err := svc.RefreshAccessToken(ctx, "")
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: "user123"}

	t.Run("revokes refresh token until expiry", func(t *testing.T) {
		svc, _, c := newTestAuthService(t)
		refresh, _ := svc.CreateJWT(ctx, user, time.Hour, TokenTypeRefresh)
		claims, _ := svc.ValidateJWT(ctx, refresh)

		c.On("Set", ctx, cache.RevokedTokenKey(claims.ID), "user123",
			mock.MatchedBy(func(ttl time.Duration) bool { return ttl > 59*time.Minute && ttl <= time.Hour })).
			Return(nil).Once()

		require.NoError(t, svc.Logout(ctx, refresh))
		c.AssertExpectations(t)
	})

	t.Run("invalid or missing tokens are ignored", func(t *testing.T) {
		svc, _, c := newTestAuthService(t)
		access, _ := svc.CreateJWT(ctx, user, time.Hour, TokenTypeAccess)
		expired, _ := svc.CreateJWT(ctx, user, -time.Hour, TokenTypeRefresh)

		assert.NoError(t, svc.Logout(ctx, ""))
		assert.NoError(t, svc.Logout(ctx, "garbage"))
		assert.NoError(t, svc.Logout(ctx, access))
		assert.NoError(t, svc.Logout(ctx, expired))
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache failure is reported", func(t *testing.T) {
		svc, _, c := newTestAuthService(t)
		refresh, _ := svc.CreateJWT(ctx, user, time.Hour, TokenTypeRefresh)
		c.On("Set", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

		assert.Error(t, svc.Logout(ctx, refresh))
	})
}

func TestAuthService_GetGoogleLoginURL(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	u := svc.GetGoogleLoginURL("state-xyz")
	assert.Contains(t, u, "accounts.google.com")
	assert.Contains(t, u, "state=state-xyz")
	assert.Contains(t, u, "client_id=client-id")
}

// fakeGoogle serves the token and userinfo endpoints of the OAuth flow.
func fakeGoogle(t *testing.T, info dto.GoogleUserInfo) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "google-access", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer google-access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func withFakeGoogle(svc *authServiceImpl, srv *httptest.Server) {
	svc.oauth2Config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	svc.userInfoURL = srv.URL + "/userinfo"
}

func TestAuthService_HandleGoogleCallback(t *testing.T) {
	ctx := context.Background()
	info := dto.GoogleUserInfo{ID: "g-1", Email: "olivia@example.com", Name: "Olivia"}

	t.Run("state mismatch", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		_, _, err := svc.HandleGoogleCallback(ctx, "code", "a", "b")
		assert.ErrorIs(t, err, ErrInvalidAuthState)
		assert.True(t, domain.HasCode(err, domain.ErrUnauthorized))
	})

	t.Run("existing google user", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		withFakeGoogle(svc, fakeGoogle(t, info))
		existing := &domain.User{ID: "01HUSER", Username: "olivia", Email: info.Email, GoogleID: "g-1"}
		repo.On("GetUserByGoogleID", mock.Anything, "g-1").Return(existing, nil).Once()

		user, tokens, err := svc.HandleGoogleCallback(ctx, "code", "s", "s")
		require.NoError(t, err)
		assert.Same(t, existing, user)
		assert.NotEmpty(t, tokens.RefreshToken)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("links by email", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		withFakeGoogle(svc, fakeGoogle(t, info))
		existing := &domain.User{ID: "01HUSER", Username: "olivia", Email: info.Email}
		repo.On("GetUserByGoogleID", mock.Anything, "g-1").Return(nil, nil).Once()
		repo.On("GetUserByEmail", mock.Anything, info.Email).Return(existing, nil).Once()
		repo.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool { return u.GoogleID == "g-1" })).Return(nil).Once()

		user, _, err := svc.HandleGoogleCallback(ctx, "code", "s", "s")
		require.NoError(t, err)
		assert.Equal(t, "01HUSER", user.ID)
		repo.AssertExpectations(t)
	})

	t.Run("creates user with free username", func(t *testing.T) {
		svc, repo, _ := newTestAuthService(t)
		withFakeGoogle(svc, fakeGoogle(t, info))
		repo.On("GetUserByGoogleID", mock.Anything, "g-1").Return(nil, nil).Once()
		repo.On("GetUserByEmail", mock.Anything, info.Email).Return(nil, nil).Once()
		repo.On("GetUserByUsername", mock.Anything, "olivia").Return(&domain.User{ID: "other"}, nil).Once()
		repo.On("GetUserByUsername", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil).Once()
		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.GoogleID == "g-1" && u.PasswordHash == "" && u.Username != "olivia"
		})).Return(nil).Once()

		user, tokens, err := svc.HandleGoogleCallback(ctx, "code", "s", "s")
		require.NoError(t, err)
		assert.Contains(t, user.Username, "olivia_")
		assert.NotEmpty(t, tokens.AccessToken)
		repo.AssertExpectations(t)
	})
}
