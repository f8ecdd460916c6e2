package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/dto"
	"tubequiz/internal/handler"
	"tubequiz/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// --- Manual Mocks ---

// MockQuizService
type MockQuizService struct {
	CreateQuizFunc  func(ctx context.Context, videoURL, userID string) (*domain.Quiz, error)
	ListQuizzesFunc func(ctx context.Context, userID string) ([]*domain.Quiz, error)
	GetQuizFunc     func(ctx context.Context, quizID, userID string) (*domain.Quiz, error)
	UpdateQuizFunc  func(ctx context.Context, quizID, userID string, update domain.QuizUpdate) (*domain.Quiz, error)
	DeleteQuizFunc  func(ctx context.Context, quizID, userID string) error
}

func (m *MockQuizService) CreateQuiz(ctx context.Context, videoURL, userID string) (*domain.Quiz, error) {
	if m.CreateQuizFunc != nil {
		return m.CreateQuizFunc(ctx, videoURL, userID)
	}
	panic("MockQuizService.CreateQuizFunc not implemented")
}
func (m *MockQuizService) ListQuizzes(ctx context.Context, userID string) ([]*domain.Quiz, error) {
	if m.ListQuizzesFunc != nil {
		return m.ListQuizzesFunc(ctx, userID)
	}
	panic("MockQuizService.ListQuizzesFunc not implemented")
}
func (m *MockQuizService) GetQuiz(ctx context.Context, quizID, userID string) (*domain.Quiz, error) {
	if m.GetQuizFunc != nil {
		return m.GetQuizFunc(ctx, quizID, userID)
	}
	panic("MockQuizService.GetQuizFunc not implemented")
}
func (m *MockQuizService) UpdateQuiz(ctx context.Context, quizID, userID string, update domain.QuizUpdate) (*domain.Quiz, error) {
	if m.UpdateQuizFunc != nil {
		return m.UpdateQuizFunc(ctx, quizID, userID, update)
	}
	panic("MockQuizService.UpdateQuizFunc not implemented")
}
func (m *MockQuizService) DeleteQuiz(ctx context.Context, quizID, userID string) error {
	if m.DeleteQuizFunc != nil {
		return m.DeleteQuizFunc(ctx, quizID, userID)
	}
	panic("MockQuizService.DeleteQuizFunc not implemented")
}

// MockAuthService
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, req dto.RegisterRequest) (*domain.User, error)
	LoginFunc                func(ctx context.Context, identifier, password string) (*domain.User, *dto.TokenPair, error)
	LogoutFunc               func(ctx context.Context, refreshToken string) error
	RefreshAccessTokenFunc   func(ctx context.Context, refreshToken string) (string, error)
	HandleGoogleCallbackFunc func(ctx context.Context, code, receivedState, expectedState string) (*domain.User, *dto.TokenPair, error)
	// tokens maps access token strings to the user they authenticate.
	tokens map[string]string
}

func (m *MockAuthService) Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	panic("MockAuthService.RegisterFunc not implemented")
}
func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*domain.User, *dto.TokenPair, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, identifier, password)
	}
	panic("MockAuthService.LoginFunc not implemented")
}
func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshToken)
	}
	panic("MockAuthService.LogoutFunc not implemented")
}
func (m *MockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if m.RefreshAccessTokenFunc != nil {
		return m.RefreshAccessTokenFunc(ctx, refreshToken)
	}
	panic("MockAuthService.RefreshAccessTokenFunc not implemented")
}
func (m *MockAuthService) GetGoogleLoginURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}
func (m *MockAuthService) HandleGoogleCallback(ctx context.Context, code, receivedState, expectedState string) (*domain.User, *dto.TokenPair, error) {
	if m.HandleGoogleCallbackFunc != nil {
		return m.HandleGoogleCallbackFunc(ctx, code, receivedState, expectedState)
	}
	panic("MockAuthService.HandleGoogleCallbackFunc not implemented")
}
func (m *MockAuthService) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	if userID, ok := m.tokens[tokenString]; ok {
		return &dto.AuthClaims{UserID: userID, TokenType: "access"}, nil
	}
	return nil, errors.New("invalid token")
}
func (m *MockAuthService) CreateJWT(ctx context.Context, user *domain.User, ttl time.Duration, tokenType string) (string, error) {
	panic("MockAuthService.CreateJWT not implemented")
}

// MockUserService
type MockUserService struct {
	GetUserProfileFunc func(ctx context.Context, userID string) (*dto.UserResponse, error)
}

func (m *MockUserService) GetUserProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	if m.GetUserProfileFunc != nil {
		return m.GetUserProfileFunc(ctx, userID)
	}
	panic("MockUserService.GetUserProfileFunc not implemented")
}

// --- Helpers ---

const (
	testUserID      = "01HUSER0000000000000000000"
	testAccessToken = "valid-access"
	testQuizID      = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
)

type testApp struct {
	app   *fiber.App
	quiz  *MockQuizService
	auth  *MockAuthService
	users *MockUserService
	pings map[string]handler.Pinger
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ta := &testApp{
		app:   fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()}),
		quiz:  &MockQuizService{},
		auth:  &MockAuthService{tokens: map[string]string{testAccessToken: testUserID}},
		users: &MockUserService{},
		pings: map[string]handler.Pinger{},
	}
	cfg := &config.Config{Cookie: config.CookieConfig{Secure: true, SameSite: "Lax", Path: "/", Domain: "example.com"}}
	handler.SetupRoutes(ta.app, handler.Handlers{
		Quiz:   handler.NewQuizHandler(ta.quiz),
		Auth:   handler.NewAuthHandler(ta.auth, cfg),
		User:   handler.NewUserHandler(ta.users),
		Health: handler.NewHealthHandler(ta.pings),
	}, ta.auth)
	return ta
}

func (ta *testApp) do(t *testing.T, method, path, body string, authed bool, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: testAccessToken})
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func detailOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body dto.ErrorResponse
	decodeJSON(t, resp, &body)
	return body.Detail
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sampleQuiz() *domain.Quiz {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	q := &domain.Quiz{
		ID: testQuizID, UserID: testUserID, Title: "Photosynthesis", Description: "",
		VideoURL: "https://www.youtube.com/watch?v=abc123", CreatedAt: created, UpdatedAt: created,
	}
	for i := 0; i < domain.QuestionsPerQuiz; i++ {
		q.Questions = append(q.Questions, &domain.Question{
			ID: "01HQ" + string(rune('A'+i)), QuizID: q.ID, Position: i, QuestionTitle: "Q?",
			QuestionOptions: []string{"A", "B", "C", "D"}, Answer: "C", CreatedAt: created, UpdatedAt: created,
		})
	}
	return q
}
