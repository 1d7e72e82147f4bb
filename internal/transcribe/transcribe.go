// Package transcribe turns uploaded audio files into text. Two engines are
// available: OpenAI-hosted Whisper and Deepgram's prerecorded API, selected
// by configuration.
package transcribe

import "fmt"

// Error is a failed transcription of a single recording. The caller must
// re-invoke to retry; nothing in this package retries automatically.
type Error struct {
	FilePath string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcribe %s: %v", e.FilePath, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
