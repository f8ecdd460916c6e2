package whisper

import (
	"context"
	"errors"
	"strings"
	"time"

	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
)

var (
	errInvalidText = errors.New("Whisper returned invalid transcript text.")
	errEmptyText   = errors.New("Whisper returned an empty transcript.")
)

// Transcriber implements domain.Transcriber with a cached whisper model.
type Transcriber struct {
	models *ModelCache
}

// NewTranscriber creates a new Transcriber.
func NewTranscriber(models *ModelCache) *Transcriber {
	return &Transcriber{models: models}
}

// Transcribe returns the trimmed transcript of audio's mp3. On any failure
// the temp audio is removed before the error is returned.
func (t *Transcriber) Transcribe(ctx context.Context, audio *domain.TempAudio) (string, error) {
	text, err := t.transcribe(ctx, audio.MP3Path())
	if err != nil {
		audio.Cleanup()
		return "", domain.NewQuizCreationError("Error transcribing audio", err)
	}
	return text, nil
}

func (t *Transcriber) transcribe(ctx context.Context, path string) (string, error) {
	l := logger.Get().With(zap.String("path", path))

	model, err := t.models.Get(ctx)
	if err != nil {
		return "", err
	}

	l.Debug("Transcribing audio")
	start := time.Now()
	result, err := model.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}

	raw, ok := result["text"].(string)
	if !ok {
		return "", errInvalidText
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", errEmptyText
	}

	l.Info("Transcription finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)))
	return text, nil
}

var _ domain.Transcriber = (*Transcriber)(nil)
