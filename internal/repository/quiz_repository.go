package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tubequiz/internal/domain"
	"tubequiz/internal/repository/models"
	"tubequiz/internal/util"

	"github.com/jmoiron/sqlx"
)

const (
	quizColumns     = `id, user_id, title, description, video_url, created_at, updated_at`
	questionColumns = `id, quiz_id, position, question_title, question_options, answer, created_at, updated_at`

	insertQuizQuery     = `INSERT INTO quizzes (` + quizColumns + `) VALUES (:1, :2, :3, :4, :5, :6, :7)`
	insertQuestionQuery = `INSERT INTO quiz_questions (` + questionColumns + `) VALUES (:1, :2, :3, :4, :5, :6, :7, :8)`

	selectQuizByIDQuery        = `SELECT ` + quizColumns + ` FROM quizzes WHERE id = :1`
	selectQuizzesByUserQuery   = `SELECT ` + quizColumns + ` FROM quizzes WHERE user_id = :1 ORDER BY created_at DESC, id DESC`
	selectQuestionsByQuizQuery = `SELECT ` + questionColumns + ` FROM quiz_questions WHERE quiz_id = :1 ORDER BY position`
	selectQuestionsByUserQuery = `SELECT qq.id, qq.quiz_id, qq.position, qq.question_title, qq.question_options, qq.answer, qq.created_at, qq.updated_at
		FROM quiz_questions qq JOIN quizzes q ON q.id = qq.quiz_id
		WHERE q.user_id = :1 ORDER BY qq.quiz_id, qq.position`

	updateQuizQuery            = `UPDATE quizzes SET title = :1, description = :2, updated_at = :3 WHERE id = :4`
	deleteQuestionsByQuizQuery = `DELETE FROM quiz_questions WHERE quiz_id = :1`
	deleteQuizQuery            = `DELETE FROM quizzes WHERE id = :1`
)

// QuizRepositoryImpl implements domain.QuizRepository on Oracle via sqlx.
type QuizRepositoryImpl struct {
	db        *sqlx.DB
	txManager domain.TransactionManager
}

// NewQuizRepository creates a new QuizRepositoryImpl.
func NewQuizRepository(db *sqlx.DB, txManager domain.TransactionManager) domain.QuizRepository {
	return &QuizRepositoryImpl{db: db, txManager: txManager}
}

// PersistQuiz writes the quiz row and its questions in one transaction. If
// any insert fails nothing is committed.
func (r *QuizRepositoryImpl) PersistQuiz(ctx context.Context, draft *domain.QuizDraft, videoURL, userID string) (*domain.Quiz, error) {
	now := time.Now()
	quiz := &domain.Quiz{
		ID:          util.NewULID(),
		UserID:      userID,
		Title:       draft.Title,
		Description: draft.Description,
		VideoURL:    videoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, d := range draft.Questions {
		quiz.Questions = append(quiz.Questions, &domain.Question{
			ID:              util.NewULID(),
			QuizID:          quiz.ID,
			Position:        i,
			QuestionTitle:   d.QuestionTitle,
			QuestionOptions: d.QuestionOptions,
			Answer:          d.Answer,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, r.db)
		m := toModelQuiz(quiz)
		if _, err := exec.ExecContext(txCtx, insertQuizQuery,
			m.ID, m.UserID, m.Title, m.Description, m.VideoURL, m.CreatedAt, m.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert quiz: %w", err)
		}
		for _, q := range quiz.Questions {
			mq := toModelQuestion(q)
			if _, err := exec.ExecContext(txCtx, insertQuestionQuery,
				mq.ID, mq.QuizID, mq.Position, mq.QuestionTitle, mq.QuestionOptions, mq.Answer, mq.CreatedAt, mq.UpdatedAt); err != nil {
				return fmt.Errorf("failed to insert question %d: %w", q.Position, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// GetQuizByID returns the quiz with its questions in order, or (nil, nil) if it does not exist.
func (r *QuizRepositoryImpl) GetQuizByID(ctx context.Context, id string) (*domain.Quiz, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.Quiz
	if err := exec.GetContext(ctx, &m, selectQuizByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz by id: %w", err)
	}

	var questions []models.QuizQuestion
	if err := exec.SelectContext(ctx, &questions, selectQuestionsByQuizQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get quiz questions: %w", err)
	}

	quiz := toDomainQuiz(&m)
	for i := range questions {
		quiz.Questions = append(quiz.Questions, toDomainQuestion(&questions[i]))
	}
	return quiz, nil
}

// ListQuizzesByUser returns the user's quizzes, newest first, each with its questions.
func (r *QuizRepositoryImpl) ListQuizzesByUser(ctx context.Context, userID string) ([]*domain.Quiz, error) {
	exec := GetExecutor(ctx, r.db)

	var rows []models.Quiz
	if err := exec.SelectContext(ctx, &rows, selectQuizzesByUserQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	quizzes := make([]*domain.Quiz, 0, len(rows))
	if len(rows) == 0 {
		return quizzes, nil
	}

	var questions []models.QuizQuestion
	if err := exec.SelectContext(ctx, &questions, selectQuestionsByUserQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to list quiz questions: %w", err)
	}
	byQuiz := make(map[string][]*domain.Question, len(rows))
	for i := range questions {
		q := toDomainQuestion(&questions[i])
		byQuiz[q.QuizID] = append(byQuiz[q.QuizID], q)
	}

	for i := range rows {
		quiz := toDomainQuiz(&rows[i])
		quiz.Questions = byQuiz[quiz.ID]
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// UpdateQuiz saves title, description and updated_at.
func (r *QuizRepositoryImpl) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	m := toModelQuiz(quiz)
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, updateQuizQuery, m.Title, m.Description, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	return expectAffected(result, "Quiz not found.")
}

// DeleteQuiz removes the quiz and its questions.
func (r *QuizRepositoryImpl) DeleteQuiz(ctx context.Context, id string) error {
	return r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := GetExecutor(txCtx, r.db)
		if _, err := exec.ExecContext(txCtx, deleteQuestionsByQuizQuery, id); err != nil {
			return fmt.Errorf("failed to delete quiz questions: %w", err)
		}
		result, err := exec.ExecContext(txCtx, deleteQuizQuery, id)
		if err != nil {
			return fmt.Errorf("failed to delete quiz: %w", err)
		}
		return expectAffected(result, "Quiz not found.")
	})
}

func expectAffected(result sql.Result, notFound string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.NewNotFoundError(notFound)
	}
	return nil
}

func toModelQuiz(q *domain.Quiz) *models.Quiz {
	if q == nil {
		return nil
	}
	return &models.Quiz{
		ID:          q.ID,
		UserID:      q.UserID,
		Title:       q.Title,
		Description: util.StringToNullString(q.Description),
		VideoURL:    q.VideoURL,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func toDomainQuiz(m *models.Quiz) *domain.Quiz {
	if m == nil {
		return nil
	}
	return &domain.Quiz{
		ID:          m.ID,
		UserID:      m.UserID,
		Title:       m.Title,
		Description: util.NullStringToString(m.Description),
		VideoURL:    m.VideoURL,
		Questions:   []*domain.Question{},
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toModelQuestion(q *domain.Question) *models.QuizQuestion {
	return &models.QuizQuestion{
		ID:              q.ID,
		QuizID:          q.QuizID,
		Position:        q.Position,
		QuestionTitle:   q.QuestionTitle,
		QuestionOptions: models.StringSlice(q.QuestionOptions),
		Answer:          q.Answer,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

func toDomainQuestion(m *models.QuizQuestion) *domain.Question {
	return &domain.Question{
		ID:              m.ID,
		QuizID:          m.QuizID,
		Position:        m.Position,
		QuestionTitle:   m.QuestionTitle,
		QuestionOptions: []string(m.QuestionOptions),
		Answer:          m.Answer,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

var _ domain.QuizRepository = (*QuizRepositoryImpl)(nil)
