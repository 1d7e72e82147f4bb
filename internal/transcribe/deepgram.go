package transcribe

import (
	"context"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// Deepgram transcribes audio through Deepgram's prerecorded REST API.
type Deepgram struct {
	client *api.Client
	model  string
}

func NewDeepgram(apiKey, model string) *Deepgram {
	if strings.TrimSpace(model) == "" {
		model = "nova-2"
	}
	c := listen.NewREST(apiKey, &interfaces.ClientOptions{})
	return &Deepgram{client: api.New(c), model: model}
}

func (d *Deepgram) Transcribe(ctx context.Context, filePath string) (string, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		Punctuate:   true,
		SmartFormat: true,
	}

	res, err := d.client.FromFile(ctx, filePath, options)
	if err != nil {
		return "", &Error{FilePath: filePath, Err: err}
	}

	channels := res.Results.Channels
	if len(channels) == 0 || len(channels[0].Alternatives) == 0 {
		return "", &Error{FilePath: filePath, Err: fmt.Errorf("empty transcription result")}
	}

	return strings.TrimSpace(channels[0].Alternatives[0].Transcript), nil
}
