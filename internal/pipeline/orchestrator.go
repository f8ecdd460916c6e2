package pipeline

import (
	"context"
	"time"

	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
)

// Stage names a step of one pipeline run.
type Stage string

const (
	StageNotStarted        Stage = "not_started"
	StageNormalizingURL    Stage = "normalizing_url"
	StageResourceAcquired  Stage = "resource_acquired"
	StageDownloading       Stage = "downloading"
	StageTranscribing      Stage = "transcribing"
	StageGeneratingContent Stage = "generating_content"
	StageParsingValidating Stage = "parsing_validating"
	StagePersisting        Stage = "persisting"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// Orchestrator runs URL -> audio -> transcript -> AI output -> validated
// draft -> persisted quiz and owns the temporary audio of each run.
type Orchestrator struct {
	fetcher     domain.AudioFetcher
	transcriber domain.Transcriber
	generator   domain.QuizContentGenerator
	quizRepo    domain.QuizRepository
	tempDir     string
}

// NewOrchestrator creates a new Orchestrator. tempDir may be empty to use the OS default.
func NewOrchestrator(
	fetcher domain.AudioFetcher,
	transcriber domain.Transcriber,
	generator domain.QuizContentGenerator,
	quizRepo domain.QuizRepository,
	tempDir string,
) *Orchestrator {
	return &Orchestrator{
		fetcher:     fetcher,
		transcriber: transcriber,
		generator:   generator,
		quizRepo:    quizRepo,
		tempDir:     tempDir,
	}
}

// run tracks the stage of a single pipeline execution for logging.
type run struct {
	log     *zap.Logger
	stage   Stage
	started time.Time
}

func (r *run) enter(s Stage) {
	r.stage = s
	r.log.Debug("Quiz pipeline stage", zap.String("stage", string(s)))
}

// fail logs the failure and makes sure err is one of the two pipeline error kinds.
func (r *run) fail(err error, message string) error {
	failedAt := r.stage
	r.stage = StageFailed
	r.log.Warn("Quiz pipeline failed",
		zap.String("stage", string(failedAt)),
		zap.Duration("elapsed", time.Since(r.started)),
		zap.Error(err),
	)
	if _, ok := domain.AsDomainError(err); ok {
		return err
	}
	return domain.NewQuizCreationError(message, err)
}

// Run creates a quiz for ownerID from the given video URL.
func (o *Orchestrator) Run(ctx context.Context, videoURL, ownerID string) (*domain.Quiz, error) {
	r := &run{
		log:     logger.Get().With(zap.String("user_id", ownerID)),
		stage:   StageNotStarted,
		started: time.Now(),
	}

	r.enter(StageNormalizingURL)
	normalized := Normalize(videoURL)
	if !IsSupportedVideoURL(normalized) {
		r.log.Info("Rejected non-YouTube URL", zap.String("url", normalized))
		return nil, domain.NewInvalidURLError()
	}
	r.log = r.log.With(zap.String("video_url", normalized))

	audio, err := domain.NewTempAudio(o.tempDir)
	if err != nil {
		return nil, r.fail(err, "Error allocating temporary audio file")
	}
	defer audio.Cleanup()
	r.enter(StageResourceAcquired)

	r.enter(StageDownloading)
	if err := o.fetcher.Fetch(ctx, normalized, audio); err != nil {
		return nil, r.fail(err, "Error downloading audio")
	}

	r.enter(StageTranscribing)
	transcript, err := o.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, r.fail(err, "Error transcribing audio")
	}

	r.enter(StageGeneratingContent)
	raw, err := o.generator.GenerateQuizContent(ctx, transcript)
	if err != nil {
		return nil, r.fail(err, "Error requesting Gemini completion")
	}

	r.enter(StageParsingValidating)
	payload, err := ParseQuizPayload(raw)
	if err != nil {
		return nil, r.fail(err, "Gemini returned invalid JSON")
	}
	draft, err := ValidateQuizPayload(payload)
	if err != nil {
		return nil, r.fail(err, "Invalid quiz payload")
	}

	r.enter(StagePersisting)
	quiz, err := o.quizRepo.PersistQuiz(ctx, draft, normalized, ownerID)
	if err != nil {
		return nil, r.fail(err, "Error saving quiz")
	}

	r.enter(StageDone)
	r.log.Info("Quiz created from video",
		zap.String("quiz_id", quiz.ID),
		zap.Int("questions", len(quiz.Questions)),
		zap.Duration("elapsed", time.Since(r.started)),
	)
	return quiz, nil
}
