package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/scribeapp/scribe/internal/session"
	"github.com/scribeapp/scribe/internal/web"
)

// transcriptionStream is a one-shot event stream bound to a single
// recording: it emits exactly one terminal event — a message event carrying
// the rendered transcription, or an error event — and then closes.
type transcriptionStream struct {
	engine   TranscriptionEngine
	renderer *web.Renderer
}

func newTranscriptionStream(engine TranscriptionEngine, renderer *web.Renderer) *transcriptionStream {
	return &transcriptionStream{engine: engine, renderer: renderer}
}

type transcriptionResult struct {
	text string
	err  error
}

// Serve runs the stream. The disconnect check before dispatch is the only
// cancellation point: once the transcription call is in flight it runs to
// completion or failure, detached from the request context. Nothing retries
// automatically; a failure surfaces once as an error event.
func (s *transcriptionStream) Serve(ctx context.Context, w http.ResponseWriter, sess *session.Session, rec session.Recording) {
	if ctx.Err() != nil {
		log.Printf("transcription request for %s disconnected before dispatch", rec.ID)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	done := make(chan transcriptionResult, 1)
	go func() {
		text, err := s.engine.Transcribe(context.WithoutCancel(ctx), rec.FilePath)
		done <- transcriptionResult{text: text, err: err}
	}()
	res := <-done

	if res.err != nil {
		log.Printf("warning: error transcribing audio: %v", res.err)
		writeEvent(w, "error", "transcription failed")
		return
	}

	sess.SetTranscription(rec.ID, res.text)
	rec.Transcription = res.text

	payload, err := s.renderer.RenderString("transcription_complete.html", map[string]any{
		"Recording": rec,
	})
	if err != nil {
		log.Printf("warning: render transcription: %v", err)
		writeEvent(w, "error", "transcription failed")
		return
	}

	writeEvent(w, "message", payload)
}

// writeEvent writes a single server-sent event frame and flushes it.
func writeEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
