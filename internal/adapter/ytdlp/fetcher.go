package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/logger"

	"go.uber.org/zap"
)

const (
	defaultBinary  = "yt-dlp"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"
	stderrTailSize = 2048
)

// Fetcher downloads the best audio stream of a video with the yt-dlp CLI and
// transcodes it to mp3.
type Fetcher struct {
	binary      string
	cookiesPath string
	jsRuntime   string
}

// NewFetcher creates a new Fetcher from the yt-dlp settings.
func NewFetcher(cfg config.YtDlpConfig) *Fetcher {
	binary := cfg.Binary
	if binary == "" {
		binary = defaultBinary
	}
	return &Fetcher{
		binary:      binary,
		cookiesPath: strings.TrimSpace(cfg.CookiesPath),
		jsRuntime:   strings.TrimSpace(cfg.JSRuntime),
	}
}

// Args returns the yt-dlp command line for downloading videoURL into audio.
func (f *Fetcher) Args(videoURL string, audio *domain.TempAudio) []string {
	args := []string{
		"-f", "bestaudio/best",
		"-o", audio.BasePath + ".%(ext)s",
		"--quiet",
		"--no-playlist",
		"--retries", "3",
		"--fragment-retries", "3",
		"--socket-timeout", "30",
		"--add-header", "User-Agent:" + userAgent,
		"--add-header", "Accept-Language:" + acceptLanguage,
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
	}
	if f.jsRuntime != "" {
		args = append(args, "--js-runtimes", f.jsRuntime)
	}
	if f.cookiesPath != "" {
		args = append(args, "--cookies", f.cookiesPath)
	}
	return append(args, "--", videoURL)
}

// Fetch runs yt-dlp. On failure the temp paths and any partial yt-dlp output
// next to them are removed before the error is returned.
func (f *Fetcher) Fetch(ctx context.Context, videoURL string, audio *domain.TempAudio) error {
	l := logger.Get().With(zap.String("video_url", videoURL))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binary, f.Args(videoURL, audio)...)
	cmd.Stderr = &stderr

	l.Debug("Downloading audio", zap.String("binary", f.binary), zap.String("target", audio.MP3Path()))
	if err := cmd.Run(); err != nil {
		discard(audio)
		if msg := tail(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		l.Warn("yt-dlp failed", zap.Error(err))
		return domain.NewQuizCreationError("Error downloading audio", err)
	}

	if _, err := os.Stat(audio.MP3Path()); err != nil {
		discard(audio)
		return domain.NewQuizCreationError("Error downloading audio", fmt.Errorf("yt-dlp produced no mp3 output: %w", err))
	}

	l.Info("Audio downloaded", zap.String("path", audio.MP3Path()))
	return nil
}

// discard removes the temp paths plus intermediates such as <base>.webm.part.
func discard(audio *domain.TempAudio) {
	audio.Cleanup()

	dir, prefix := filepath.Dir(audio.BasePath), filepath.Base(audio.BasePath)+"."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Get().Debug("Failed to remove yt-dlp leftover", zap.String("path", path), zap.Error(err))
		}
	}
}

// tail keeps at most stderrTailSize bytes from the end of s without splitting a rune.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailSize {
		start := len(s) - stderrTailSize
		for start < len(s) && !utf8.RuneStart(s[start]) {
			start++
		}
		s = s[start:]
	}
	return s
}

var _ domain.AudioFetcher = (*Fetcher)(nil)
