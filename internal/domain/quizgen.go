package domain

import (
	"context"
)

// AudioFetcher downloads the audio track of a video into a TempAudio.
type AudioFetcher interface {
	Fetch(ctx context.Context, videoURL string, audio *TempAudio) error
}

// Transcriber turns downloaded audio into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio *TempAudio) (string, error)
}

// SpeechEngine loads speech-to-text models. downloadRoot may be empty.
type SpeechEngine interface {
	LoadModel(ctx context.Context, name, downloadRoot string) (SpeechModel, error)
}

// SpeechModel is a loaded speech-to-text model. Transcribe returns the raw
// engine result, which carries the transcript under the "text" key.
type SpeechModel interface {
	Transcribe(ctx context.Context, audioPath string) (map[string]any, error)
}

// QuizContentGenerator asks the AI model for quiz JSON built from a transcript.
type QuizContentGenerator interface {
	GenerateQuizContent(ctx context.Context, transcript string) (string, error)
}

// CompletionClient is a single-prompt text completion call against one provider.
type CompletionClient interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// CompletionClientFactory builds a CompletionClient from an API key.
type CompletionClientFactory func(ctx context.Context, apiKey string) (CompletionClient, error)
