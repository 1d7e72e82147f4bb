// Package server is the HTTP layer: session cookie middleware, the
// authentication gate, upload/transcribe/publish handlers, and the one-shot
// transcription event stream.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/scribeapp/scribe/internal/publish"
	"github.com/scribeapp/scribe/internal/session"
	"github.com/scribeapp/scribe/internal/web"
)

// TranscriptionEngine turns an uploaded audio file into text.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, filePath string) (string, error)
}

// AuthFlow drives the OAuth handshake for a session.
type AuthFlow interface {
	Begin(sess *session.Session) string
	Callback(ctx context.Context, sess *session.Session, code, state string) error
}

// Publisher fans an authored message out to its per-language channels.
type Publisher interface {
	Publish(ctx context.Context, client publish.Messenger, req publish.Request) error
}

// Config carries the handler-level settings.
type Config struct {
	UploadPath      string
	SourceLanguage  string
	TargetLanguages []string
	// LanguageChannels holds the default channel id per language code.
	LanguageChannels map[string]string
}

// Server wires the domain components into HTTP handlers.
type Server struct {
	cfg       Config
	store     *session.Store
	flow      AuthFlow
	engine    TranscriptionEngine
	pipeline  Publisher
	messenger func(token string) publish.Messenger
	renderer  *web.Renderer
}

func New(cfg Config, store *session.Store, flow AuthFlow, engine TranscriptionEngine, pipeline Publisher, messenger func(token string) publish.Messenger, renderer *web.Renderer) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		flow:      flow,
		engine:    engine,
		pipeline:  pipeline,
		messenger: messenger,
		renderer:  renderer,
	}
}

// Handler builds the route table. Every route passes through the session
// middleware; the mutating and identity-bearing routes also pass through
// the authentication gate.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.withSession(s.requireUser(s.handleHome)))
	mux.HandleFunc("GET /login", s.withSession(s.handleLogin))
	mux.HandleFunc("GET /auth/redirect", s.withSession(s.handleAuthRedirect))
	mux.HandleFunc("POST /upload", s.withSession(s.requireUser(s.handleUpload)))
	mux.HandleFunc("GET /recordings/{id}", s.withSession(s.requireUser(s.handleTranscribe)))
	mux.HandleFunc("POST /publish", s.withSession(s.requireUser(s.handlePublish)))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
