package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tubequiz/internal/domain"
)

const defaultBinary = "whisper"

// CLIEngine loads models for the openai-whisper command line tool.
type CLIEngine struct {
	binary string
}

// NewCLIEngine creates a new CLIEngine. binary defaults to "whisper" on PATH.
func NewCLIEngine(binary string) *CLIEngine {
	if binary == "" {
		binary = defaultBinary
	}
	return &CLIEngine{binary: binary}
}

// LoadModel resolves the whisper binary and prepares the model directory.
// Model weights are fetched into downloadRoot by whisper itself on first use.
func (e *CLIEngine) LoadModel(ctx context.Context, name, downloadRoot string) (domain.SpeechModel, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return nil, fmt.Errorf("whisper binary %q not found: %w", e.binary, err)
	}
	if downloadRoot != "" {
		if err := os.MkdirAll(downloadRoot, 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare whisper download root %q: %w", downloadRoot, err)
		}
	}
	return &cliModel{binary: path, name: name, downloadRoot: downloadRoot}, nil
}

type cliModel struct {
	binary       string
	name         string
	downloadRoot string
}

func (m *cliModel) args(audioPath, outputDir string) []string {
	args := []string{audioPath, "--model", m.name}
	if m.downloadRoot != "" {
		args = append(args, "--model_dir", m.downloadRoot)
	}
	return append(args,
		"--fp16", "False",
		"--output_format", "json",
		"--output_dir", outputDir,
		"--verbose", "False",
	)
}

// Transcribe runs whisper on audioPath and returns its decoded JSON result.
func (m *cliModel) Transcribe(ctx context.Context, audioPath string) (map[string]any, error) {
	outputDir, err := os.MkdirTemp("", "tubequiz-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, m.binary, m.args(audioPath, outputDir)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("whisper failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("whisper failed: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	raw, err := os.ReadFile(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode whisper output: %w", err)
	}
	return result, nil
}

var (
	_ domain.SpeechEngine = (*CLIEngine)(nil)
	_ domain.SpeechModel  = (*cliModel)(nil)
)
