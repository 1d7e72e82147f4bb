package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scribeapp/scribe/internal/session"
	"github.com/scribeapp/scribe/internal/web"
)

type fakeEngine struct {
	text  string
	err   error
	calls int
}

func (e *fakeEngine) Transcribe(_ context.Context, _ string) (string, error) {
	e.calls++
	return e.text, e.err
}

func testRenderer(t *testing.T) *web.Renderer {
	t.Helper()
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("renderer init failed: %v", err)
	}
	return renderer
}

func TestStreamEmitsSingleMessageEvent(t *testing.T) {
	engine := &fakeEngine{text: "hello world"}
	stream := newTranscriptionStream(engine, testRenderer(t))
	sess := session.NewStore().StartSession()
	rec := session.Recording{ID: "r1", FilePath: "/tmp/r1.ogg"}
	sess.AddRecording(rec)

	recorder := httptest.NewRecorder()
	stream.Serve(context.Background(), recorder, sess, rec)

	body := recorder.Body.String()
	if !strings.Contains(body, "event: message\n") {
		t.Fatalf("expected a message event, got %q", body)
	}
	if !strings.Contains(body, "hello world") {
		t.Fatalf("expected rendered transcription, got %q", body)
	}
	if strings.Count(body, "event: ") != 1 {
		t.Fatalf("expected exactly one event, got %q", body)
	}
	if got := recorder.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}

	stored, _ := sess.Recording("r1")
	if stored.Transcription != "hello world" {
		t.Fatalf("expected transcription stored on session, got %q", stored.Transcription)
	}
}

func TestStreamEmitsErrorEventOnFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("model unavailable")}
	stream := newTranscriptionStream(engine, testRenderer(t))
	sess := session.NewStore().StartSession()
	rec := session.Recording{ID: "r1", FilePath: "/tmp/r1.ogg"}
	sess.AddRecording(rec)

	recorder := httptest.NewRecorder()
	stream.Serve(context.Background(), recorder, sess, rec)

	body := recorder.Body.String()
	if !strings.Contains(body, "event: error\n") {
		t.Fatalf("expected an error event, got %q", body)
	}
	if strings.Count(body, "event: ") != 1 {
		t.Fatalf("expected exactly one event, got %q", body)
	}
	if engine.calls != 1 {
		t.Fatalf("expected a single engine call, got %d — nothing retries automatically", engine.calls)
	}
}

func TestStreamDisconnectedBeforeDispatch(t *testing.T) {
	engine := &fakeEngine{text: "never used"}
	stream := newTranscriptionStream(engine, testRenderer(t))
	sess := session.NewStore().StartSession()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recorder := httptest.NewRecorder()
	stream.Serve(ctx, recorder, sess, session.Recording{ID: "r1", FilePath: "/tmp/r1.ogg"})

	if engine.calls != 0 {
		t.Fatalf("expected the engine never invoked, got %d calls", engine.calls)
	}
	if recorder.Body.Len() != 0 {
		t.Fatalf("expected no output for a disconnected request, got %q", recorder.Body.String())
	}
}
