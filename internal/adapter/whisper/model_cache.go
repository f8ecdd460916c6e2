package whisper

import (
	"context"
	"sync"
	"time"

	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ModelCache keeps one loaded speech model for the lifetime of the process.
// Concurrent first calls share a single load; failed loads are not cached.
// With CLIEngine the cached value is the resolved engine handle (binary path,
// model name, download root); the whisper CLI still reads the weights on every run.
type ModelCache struct {
	engine       domain.SpeechEngine
	name         string
	downloadRoot string

	mu      sync.RWMutex
	model   domain.SpeechModel
	sfGroup singleflight.Group
}

// NewModelCache creates a new ModelCache. name defaults to "small".
func NewModelCache(engine domain.SpeechEngine, name, downloadRoot string) *ModelCache {
	if name == "" {
		name = "small"
	}
	return &ModelCache{engine: engine, name: name, downloadRoot: downloadRoot}
}

// Get returns the cached model, loading it on first use.
func (c *ModelCache) Get(ctx context.Context) (domain.SpeechModel, error) {
	if m := c.cached(); m != nil {
		logger.Get().Debug("Using cached whisper model", zap.String("model", c.name))
		return m, nil
	}

	v, err, shared := c.sfGroup.Do(c.name, func() (interface{}, error) {
		if m := c.cached(); m != nil {
			return m, nil
		}

		l := logger.Get().With(zap.String("model", c.name), zap.String("download_root", c.downloadRoot))
		l.Info("Loading whisper model")
		start := time.Now()

		// A cancelled request must not fail the load for the callers sharing it.
		m, err := c.engine.LoadModel(context.WithoutCancel(ctx), c.name, c.downloadRoot)
		if err != nil {
			l.Error("Failed to load whisper model", zap.Error(err))
			return nil, err
		}

		c.mu.Lock()
		c.model = m
		c.mu.Unlock()
		l.Info("Whisper model loaded", zap.Duration("elapsed", time.Since(start)))
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Get().Debug("Whisper model load was shared", zap.String("model", c.name))
	}
	return v.(domain.SpeechModel), nil
}

func (c *ModelCache) cached() domain.SpeechModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}
