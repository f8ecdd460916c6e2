package handler

import (
	"tubequiz/internal/dto"
	"tubequiz/internal/logger"
	"tubequiz/internal/middleware"
	"tubequiz/internal/service"
	"tubequiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service   service.QuizService
	validator *validation.Validator
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizService) *QuizHandler {
	return &QuizHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// CreateQuiz godoc
// @Summary Create a quiz from a YouTube video
// @Description Downloads the audio, transcribes it and generates a 10-question quiz. This call blocks until the quiz is stored.
// @Tags quiz
// @Accept json
// @Produce json
// @Param body body dto.CreateQuizRequest true "Video URL"
// @Success 201 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security CookieAuth
// @Router /createQuiz/ [post]
func (h *QuizHandler) CreateQuiz(c *fiber.Ctx) error {
	var req dto.CreateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Detail: "Invalid request body"})
	}
	if errs := h.validator.ValidateCreateQuizRequest(req); len(errs) > 0 {
		return errs
	}

	userID := middleware.GetUserID(c)
	quiz, err := h.service.CreateQuiz(c.UserContext(), req.URL, userID)
	if err != nil {
		return err
	}

	logger.Get().Info("Quiz created", zap.String("quiz_id", quiz.ID), zap.String("user_id", userID))
	return c.Status(fiber.StatusCreated).JSON(dto.NewQuizResponse(quiz))
}

// ListQuizzes godoc
// @Summary List my quizzes
// @Description Returns the caller's quizzes, newest first.
// @Tags quiz
// @Produce json
// @Success 200 {array} dto.QuizResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security CookieAuth
// @Router /quizzes/ [get]
func (h *QuizHandler) ListQuizzes(c *fiber.Ctx) error {
	quizzes, err := h.service.ListQuizzes(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizListResponse(quizzes))
}

// GetQuiz godoc
// @Summary Get a quiz
// @Tags quiz
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.QuizResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security CookieAuth
// @Router /quizzes/{id}/ [get]
func (h *QuizHandler) GetQuiz(c *fiber.Ctx) error {
	quiz, err := h.service.GetQuiz(c.UserContext(), c.Params("id"), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizResponse(quiz))
}

// PatchQuiz godoc
// @Summary Partially update a quiz
// @Description Only title and description may be changed.
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param body body dto.UpdateQuizRequest true "Fields to change"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security CookieAuth
// @Router /quizzes/{id}/ [patch]
func (h *QuizHandler) PatchQuiz(c *fiber.Ctx) error {
	return h.update(c, true)
}

// ReplaceQuiz godoc
// @Summary Update a quiz
// @Description Title and description are both required.
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param body body dto.UpdateQuizRequest true "New values"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security CookieAuth
// @Router /quizzes/{id}/ [put]
func (h *QuizHandler) ReplaceQuiz(c *fiber.Ctx) error {
	return h.update(c, false)
}

func (h *QuizHandler) update(c *fiber.Ctx, partial bool) error {
	var req dto.UpdateQuizRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Detail: "Invalid request body"})
		}
	}
	if errs := h.validator.ValidateQuizUpdate(req, partial); len(errs) > 0 {
		return errs
	}

	quiz, err := h.service.UpdateQuiz(c.UserContext(), c.Params("id"), middleware.GetUserID(c), req.ToDomain())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQuizResponse(quiz))
}

// DeleteQuiz godoc
// @Summary Delete a quiz
// @Tags quiz
// @Param id path string true "Quiz ID"
// @Success 204
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security CookieAuth
// @Router /quizzes/{id}/ [delete]
func (h *QuizHandler) DeleteQuiz(c *fiber.Ctx) error {
	if err := h.service.DeleteQuiz(c.UserContext(), c.Params("id"), middleware.GetUserID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
