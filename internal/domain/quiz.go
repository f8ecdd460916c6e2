package domain

import (
	"context"
	"strings"
	"time"
)

// QuestionsPerQuiz is the number of questions the generation pipeline produces.
const QuestionsPerQuiz = 10

// OptionsPerQuestion is the number of answer options every question carries.
const OptionsPerQuestion = 4

// Quiz is a persisted quiz owned by a single user.
type Quiz struct {
	ID          string
	UserID      string
	Title       string
	Description string
	VideoURL    string
	Questions   []*Question
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Question belongs to exactly one quiz. Position keeps the order in which
// the questions were generated.
type Question struct {
	ID              string
	QuizID          string
	Position        int
	QuestionTitle   string
	QuestionOptions []string
	Answer          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// QuizDraft is the typed form of a generated quiz after it passed validation.
type QuizDraft struct {
	Title       string
	Description string
	Questions   []QuestionDraft
}

type QuestionDraft struct {
	QuestionTitle   string
	QuestionOptions []string
	Answer          string
}

// QuizUpdate carries the user-editable fields of a quiz. Nil fields are left untouched.
type QuizUpdate struct {
	Title       *string
	Description *string
}

// IsOwnedBy reports whether userID owns the quiz.
func (q *Quiz) IsOwnedBy(userID string) bool {
	return userID != "" && q.UserID == userID
}

// Apply copies the set fields of u onto the quiz and bumps UpdatedAt.
func (q *Quiz) Apply(u QuizUpdate, now time.Time) error {
	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return ValidationErrors{NewFieldError("title", "This field may not be blank.")}
		}
		q.Title = *u.Title
	}
	if u.Description != nil {
		q.Description = *u.Description
	}
	q.UpdatedAt = now
	return nil
}

// QuizRepository defines persistence for quizzes and their questions.
type QuizRepository interface {
	// PersistQuiz stores the quiz and all of its questions as one atomic unit.
	PersistQuiz(ctx context.Context, draft *QuizDraft, videoURL, userID string) (*Quiz, error)
	GetQuizByID(ctx context.Context, id string) (*Quiz, error)
	ListQuizzesByUser(ctx context.Context, userID string) ([]*Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *Quiz) error
	DeleteQuiz(ctx context.Context, id string) error
}

// TransactionManager runs fn inside a database transaction carried by ctx.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
