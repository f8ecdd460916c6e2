package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tubequiz/internal/cache"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
)

const msgQuizForbidden = "You do not have permission to access this quiz."

// QuizPipeline creates a quiz from a video URL.
type QuizPipeline interface {
	Run(ctx context.Context, videoURL, ownerID string) (*domain.Quiz, error)
}

// QuizService defines the quiz use cases exposed over HTTP.
type QuizService interface {
	CreateQuiz(ctx context.Context, videoURL, userID string) (*domain.Quiz, error)
	ListQuizzes(ctx context.Context, userID string) ([]*domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID, userID string) (*domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quizID, userID string, update domain.QuizUpdate) (*domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID, userID string) error
}

type quizService struct {
	repo            domain.QuizRepository
	pipeline        QuizPipeline
	cache           domain.Cache
	cacheTTL        time.Duration
	pipelineTimeout time.Duration
}

// NewQuizService creates a new quiz service. cache may be nil to disable
// caching; a zero pipelineTimeout means no deadline beyond the caller's.
func NewQuizService(
	repo domain.QuizRepository,
	pipeline QuizPipeline,
	cache domain.Cache,
	cacheTTL time.Duration,
	pipelineTimeout time.Duration,
) QuizService {
	return &quizService{
		repo:            repo,
		pipeline:        pipeline,
		cache:           cache,
		cacheTTL:        cacheTTL,
		pipelineTimeout: pipelineTimeout,
	}
}

func (s *quizService) CreateQuiz(ctx context.Context, videoURL, userID string) (*domain.Quiz, error) {
	if s.pipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pipelineTimeout)
		defer cancel()
	}

	quiz, err := s.pipeline.Run(ctx, videoURL, userID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.QuizListKey(userID))
	return quiz, nil
}

func (s *quizService) ListQuizzes(ctx context.Context, userID string) ([]*domain.Quiz, error) {
	key := cache.QuizListKey(userID)
	var cached []*domain.Quiz
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	quizzes, err := s.repo.ListQuizzesByUser(ctx, userID)
	if err != nil {
		return nil, domain.NewInternalError("failed to list quizzes", err)
	}
	if quizzes == nil {
		quizzes = []*domain.Quiz{}
	}
	s.writeCache(ctx, key, quizzes)
	return quizzes, nil
}

func (s *quizService) GetQuiz(ctx context.Context, quizID, userID string) (*domain.Quiz, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsOwnedBy(userID) {
		return nil, domain.NewForbiddenError(msgQuizForbidden)
	}
	return quiz, nil
}

func (s *quizService) UpdateQuiz(ctx context.Context, quizID, userID string, update domain.QuizUpdate) (*domain.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	if err := quiz.Apply(update, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuiz(ctx, quiz); err != nil {
		if _, ok := domain.AsDomainError(err); ok {
			return nil, err
		}
		return nil, domain.NewInternalError("failed to update quiz", err)
	}
	s.invalidate(ctx, cache.QuizDetailKey(quizID), cache.QuizListKey(userID))
	logger.Get().Info("Quiz updated", zap.String("quiz_id", quizID), zap.String("user_id", userID))
	return quiz, nil
}

func (s *quizService) DeleteQuiz(ctx context.Context, quizID, userID string) error {
	if _, err := s.GetQuiz(ctx, quizID, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteQuiz(ctx, quizID); err != nil {
		if _, ok := domain.AsDomainError(err); ok {
			return err
		}
		return domain.NewInternalError("failed to delete quiz", err)
	}
	s.invalidate(ctx, cache.QuizDetailKey(quizID), cache.QuizListKey(userID))
	logger.Get().Info("Quiz deleted", zap.String("quiz_id", quizID), zap.String("user_id", userID))
	return nil
}

// loadQuiz reads a quiz through the detail cache.
func (s *quizService) loadQuiz(ctx context.Context, quizID string) (*domain.Quiz, error) {
	key := cache.QuizDetailKey(quizID)
	var cached domain.Quiz
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	quiz, err := s.repo.GetQuizByID(ctx, quizID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load quiz", err)
	}
	if quiz == nil {
		return nil, domain.NewNotFoundError("No Quiz matches the given query.")
	}
	s.writeCache(ctx, key, quiz)
	return quiz, nil
}

func (s *quizService) readCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("Quiz cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		logger.Get().Warn("Discarding undecodable quiz cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	logger.Get().Debug("Quiz cache hit", zap.String("key", key))
	return true
}

func (s *quizService) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Get().Warn("Failed to encode quiz for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		logger.Get().Warn("Quiz cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *quizService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logger.Get().Warn("Quiz cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
