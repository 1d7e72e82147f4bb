package transcribe

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper transcribes audio through OpenAI's hosted Whisper API.
type Whisper struct {
	client *openai.Client
	model  string
}

func NewWhisper(apiKey, model string) *Whisper {
	return NewWhisperWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewWhisperWithConfig(config openai.ClientConfig, model string) *Whisper {
	if strings.TrimSpace(model) == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: openai.NewClientWithConfig(config), model: model}
}

func (w *Whisper) Transcribe(ctx context.Context, filePath string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filePath,
	})
	if err != nil {
		return "", &Error{FilePath: filePath, Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}
