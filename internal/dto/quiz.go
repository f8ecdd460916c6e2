package dto

import (
	"time"

	"tubequiz/internal/domain"
)

// CreateQuizRequest is the request body for generating a quiz from a video.
// @Description Request body for creating a quiz from a YouTube URL
type CreateQuizRequest struct {
	URL string `json:"url" example:"https://www.youtube.com/watch?v=dQw4w9WgXcQ"`
}

// UpdateQuizRequest carries the editable quiz fields. For PATCH both fields are
// optional; for PUT both are required.
// @Description Request body for updating a quiz
type UpdateQuizRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ToDomain converts the request into a domain.QuizUpdate.
func (r UpdateQuizRequest) ToDomain() domain.QuizUpdate {
	return domain.QuizUpdate{Title: r.Title, Description: r.Description}
}

// QuestionResponse is a single question as returned by the API.
type QuestionResponse struct {
	ID              string    `json:"id"`
	QuestionTitle   string    `json:"question_title"`
	QuestionOptions []string  `json:"question_options"`
	Answer          string    `json:"answer"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// QuizResponse is a quiz with its questions in generation order.
// @Description Quiz with nested questions
type QuizResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	VideoURL    string             `json:"video_url"`
	Questions   []QuestionResponse `json:"questions"`
}

// NewQuizResponse maps a domain quiz to its API shape.
func NewQuizResponse(q *domain.Quiz) QuizResponse {
	resp := QuizResponse{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
		VideoURL:    q.VideoURL,
		Questions:   make([]QuestionResponse, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		options := question.QuestionOptions
		if options == nil {
			options = []string{}
		}
		resp.Questions = append(resp.Questions, QuestionResponse{
			ID:              question.ID,
			QuestionTitle:   question.QuestionTitle,
			QuestionOptions: options,
			Answer:          question.Answer,
			CreatedAt:       question.CreatedAt,
			UpdatedAt:       question.UpdatedAt,
		})
	}
	return resp
}

// NewQuizListResponse maps quizzes in order.
func NewQuizListResponse(quizzes []*domain.Quiz) []QuizResponse {
	out := make([]QuizResponse, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, NewQuizResponse(q))
	}
	return out
}

// ErrorResponse is the body of every error reply.
// @Description Error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ValidationErrorResponse lists per-field request errors.
// @Description Validation error response
type ValidationErrorResponse struct {
	Detail string              `json:"detail"`
	Errors []domain.FieldError `json:"errors"`
}

// MessageResponse represents a generic message response.
// @Description Generic message response
type MessageResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
