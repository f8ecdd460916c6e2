package domain

import (
	"errors"
	"io/fs"
	"os"

	"tubequiz/internal/logger"

	"go.uber.org/zap"
)

const tempAudioPattern = "tubequiz-*"

// TempAudio is the scratch location one pipeline run downloads audio into.
// The base path is reserved on disk up front; the downloader writes the
// encoded audio next to it at MP3Path.
type TempAudio struct {
	BasePath string
}

// NewTempAudio reserves a unique base path inside dir (the OS temp dir when empty).
func NewTempAudio(dir string) (*TempAudio, error) {
	f, err := os.CreateTemp(dir, tempAudioPattern)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, err
	}
	return &TempAudio{BasePath: f.Name()}, nil
}

// MP3Path is where the downloader leaves the transcoded audio.
func (t *TempAudio) MP3Path() string {
	return t.BasePath + ".mp3"
}

// Cleanup removes both paths. It never fails: missing files are skipped and
// other removal errors are logged at debug, so it can run any number of times.
func (t *TempAudio) Cleanup() {
	removeQuietly(t.BasePath)
	removeQuietly(t.MP3Path())
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Get().Debug("Failed to remove temp audio file", zap.String("path", path), zap.Error(err))
	}
}
