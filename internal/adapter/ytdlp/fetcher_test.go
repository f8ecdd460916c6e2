package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"unicode/utf8"

	"tubequiz/internal/config"
	"tubequiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAudio(t *testing.T) *domain.TempAudio {
	t.Helper()
	audio, err := domain.NewTempAudio(t.TempDir())
	require.NoError(t, err)
	return audio
}

// fakeBinary writes an executable shell script standing in for yt-dlp.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

func TestFetcher_Args(t *testing.T) {
	audio := &domain.TempAudio{BasePath: "/tmp/tubequiz-123"}

	t.Run("defaults", func(t *testing.T) {
		f := NewFetcher(config.YtDlpConfig{JSRuntime: "node"})
		args := f.Args("https://www.youtube.com/watch?v=abc", audio)

		assert.Equal(t, "yt-dlp", f.binary)
		assert.Equal(t, "bestaudio/best", args[indexOf(args, "-f")+1])
		assert.Equal(t, "/tmp/tubequiz-123.%(ext)s", args[indexOf(args, "-o")+1])
		assert.Equal(t, "mp3", args[indexOf(args, "--audio-format")+1])
		assert.Equal(t, "192K", args[indexOf(args, "--audio-quality")+1])
		assert.Equal(t, "node", args[indexOf(args, "--js-runtimes")+1])
		assert.Contains(t, args, "--no-playlist")
		assert.Contains(t, args, "User-Agent:"+userAgent)
		assert.Contains(t, args, "Accept-Language:en-US,en;q=0.9")
		assert.Equal(t, -1, indexOf(args, "--cookies"))
		assert.Equal(t, "https://www.youtube.com/watch?v=abc", args[len(args)-1])
	})

	t.Run("cookies file", func(t *testing.T) {
		f := NewFetcher(config.YtDlpConfig{Binary: "/usr/local/bin/yt-dlp", CookiesPath: " /secrets/cookies.txt "})
		args := f.Args("u", audio)

		assert.Equal(t, "/usr/local/bin/yt-dlp", f.binary)
		assert.Equal(t, "/secrets/cookies.txt", args[indexOf(args, "--cookies")+1])
		assert.Equal(t, -1, indexOf(args, "--js-runtimes"))
	})
}

func TestFetcher_Fetch_Success(t *testing.T) {
	// $4 is the -o template; replace the extension placeholder like yt-dlp does.
	bin := fakeBinary(t, `out=$(echo "$4" | sed 's/%(ext)s/mp3/'); printf 'ID3' > "$out"`)
	audio := newAudio(t)

	err := NewFetcher(config.YtDlpConfig{Binary: bin}).Fetch(context.Background(), "https://youtu.be/x", audio)

	require.NoError(t, err)
	assert.FileExists(t, audio.MP3Path())
}

func TestFetcher_Fetch_CommandFailureCleansUp(t *testing.T) {
	bin := fakeBinary(t, `echo "ERROR: [youtube] x: Video unavailable" >&2; exit 1`)
	audio := newAudio(t)
	require.NoError(t, os.WriteFile(audio.MP3Path(), []byte("partial"), 0o600))

	err := NewFetcher(config.YtDlpConfig{Binary: bin}).Fetch(context.Background(), "https://youtu.be/x", audio)

	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrQuizCreation))
	assert.True(t, strings.HasPrefix(err.Error(), "Error downloading audio: "))
	assert.Contains(t, err.Error(), "Video unavailable")
	assert.NoFileExists(t, audio.BasePath)
	assert.NoFileExists(t, audio.MP3Path())
}

func TestFetcher_Fetch_MissingBinary(t *testing.T) {
	audio := newAudio(t)

	err := NewFetcher(config.YtDlpConfig{Binary: filepath.Join(t.TempDir(), "does-not-exist")}).
		Fetch(context.Background(), "https://youtu.be/x", audio)

	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrQuizCreation))
	assert.NoFileExists(t, audio.BasePath)
}

func TestFetcher_Fetch_NoOutputProduced(t *testing.T) {
	bin := fakeBinary(t, `exit 0`)
	audio := newAudio(t)

	err := NewFetcher(config.YtDlpConfig{Binary: bin}).Fetch(context.Background(), "https://youtu.be/x", audio)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mp3 output")
	assert.NoFileExists(t, audio.BasePath)
}

func TestTail(t *testing.T) {
	long := strings.Repeat("a", stderrTailSize) + "END"
	got := tail(long)
	assert.Len(t, got, stderrTailSize)
	assert.True(t, strings.HasSuffix(got, "END"))
	assert.Equal(t, "oops", tail("  oops\n"))
}

func TestTail_KeepsRunesWhole(t *testing.T) {
	// 3-byte runes with a 1-byte head so the cut lands inside a rune
	long := "x" + strings.Repeat("日", stderrTailSize/3+10)
	got := tail(long)

	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), stderrTailSize)
	assert.True(t, strings.HasSuffix(long, got))
	assert.Greater(t, len(got), stderrTailSize-utf8.UTFMax)
}

func TestFetcher_Fetch_FailureRemovesPartialOutput(t *testing.T) {
	// yt-dlp leaves its download intermediates next to the base path when it dies
	bin := fakeBinary(t, `prev=""
for v in "$@"; do [ "$prev" = "-o" ] && out="$v"; prev="$v"; done
base=$(printf '%s' "$out" | sed 's/[.]%(ext)s$//')
touch "$base.webm" "$base.webm.part" "$base.m4a"
echo "ERROR: interrupted" >&2; exit 1`)
	audio := newAudio(t)
	dir := filepath.Dir(audio.BasePath)
	unrelated := filepath.Join(dir, "other.webm")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o600))

	err := NewFetcher(config.YtDlpConfig{Binary: bin}).Fetch(context.Background(), "https://youtu.be/x", audio)
	require.Error(t, err)

	for _, ext := range []string{".webm", ".webm.part", ".m4a", ".mp3", ""} {
		assert.NoFileExists(t, audio.BasePath+ext)
	}
	assert.FileExists(t, unrelated)
}
