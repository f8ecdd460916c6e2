package handler

import (
	"tubequiz/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups the HTTP handlers mounted by SetupRoutes.
type Handlers struct {
	Quiz   *QuizHandler
	Auth   *AuthHandler
	User   *UserHandler
	Health *HealthHandler
}

// SetupRoutes mounts the health probes and the /api routes. Trailing slashes
// are optional since the app does not use strict routing.
func SetupRoutes(app *fiber.App, h Handlers, tokens middleware.TokenValidator) {
	protected := middleware.Protected(tokens)
	vm := middleware.NewValidationMiddleware()

	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.Health)

	api := app.Group("/api")

	api.Post("/register", h.Auth.Register)
	api.Post("/login", h.Auth.Login)
	api.Post("/logout", protected, h.Auth.Logout)
	api.Post("/token/refresh", h.Auth.RefreshToken)
	api.Get("/auth/google/login", h.Auth.GoogleLogin)
	api.Get("/auth/google/callback", h.Auth.GoogleCallback)

	api.Get("/users/me", protected, h.User.GetMyProfile)

	api.Post("/createQuiz", protected, h.Quiz.CreateQuiz)
	api.Get("/quizzes", protected, h.Quiz.ListQuizzes)

	quizID := vm.ValidateQuizID()
	editable := vm.StrictFields("title", "description")
	api.Get("/quizzes/:id", protected, quizID, h.Quiz.GetQuiz)
	api.Patch("/quizzes/:id", protected, quizID, editable, h.Quiz.PatchQuiz)
	api.Put("/quizzes/:id", protected, quizID, editable, h.Quiz.ReplaceQuiz)
	api.Delete("/quizzes/:id", protected, quizID, h.Quiz.DeleteQuiz)
}
