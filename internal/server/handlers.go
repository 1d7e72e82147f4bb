package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/scribeapp/scribe/internal/auth"
	"github.com/scribeapp/scribe/internal/publish"
	"github.com/scribeapp/scribe/internal/session"
	"github.com/scribeapp/scribe/internal/slack"
)

// allowedAudioTypes is the upload content-type whitelist. Anything else is
// rejected before the file is written to storage.
var allowedAudioTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/ogg":  true,
	"audio/wav":  true,
	"audio/flac": true,
}

const maxUploadBytes = 32 << 20

type languageOption struct {
	Code      string
	Enabled   bool
	ChannelID string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	user, _ := sess.User()
	team, _ := sess.Team()

	languages := make([]languageOption, 0, len(s.cfg.TargetLanguages)+1)
	for _, code := range append([]string{s.cfg.SourceLanguage}, s.cfg.TargetLanguages...) {
		languages = append(languages, languageOption{
			Code:      code,
			Enabled:   s.cfg.LanguageChannels[code] != "",
			ChannelID: s.cfg.LanguageChannels[code],
		})
	}

	s.renderer.Render(w, http.StatusOK, "home.html", map[string]any{
		"User":          user,
		"Team":          team,
		"Channels":      sess.Channels(),
		"Languages":     languages,
		"Notifications": sess.ConsumeNotifications(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.renderer.Render(w, http.StatusOK, "login.html", map[string]any{
		"AuthURL":       s.flow.Begin(sess),
		"Notifications": sess.ConsumeNotifications(),
	})
}

func (s *Server) handleAuthRedirect(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	err := s.flow.Callback(r.Context(), sess, code, state)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, auth.ErrStateMismatch):
		writeJSONError(w, http.StatusBadRequest, "invalid state")
	case errors.Is(err, auth.ErrInvalidToken):
		log.Printf("warning: invalid token: %v", err)
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
	default:
		writeJSONError(w, http.StatusInternalServerError, "authentication failed")
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !allowedAudioTypes[contentType] {
		log.Printf("warning: invalid content-type: %s", contentType)
		writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported file format")
		return
	}

	recordingID := uuid.NewString()
	parentDir := filepath.Join(s.cfg.UploadPath, sess.ID())
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "store recording failed")
		return
	}
	filePath := filepath.Join(parentDir, recordingID+".ogg")

	dst, err := os.Create(filePath)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "store recording failed")
		return
	}
	_, copyErr := io.Copy(dst, file)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		writeJSONError(w, http.StatusInternalServerError, "store recording failed")
		return
	}

	recording := session.Recording{ID: recordingID, FilePath: filePath}
	sess.AddRecording(recording)

	// 303 so that browser history does not resubmit the form.
	s.renderer.Render(w, http.StatusSeeOther, "upload_complete.html", map[string]any{
		"Recording": recording,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	recording, ok := sess.Recording(r.PathValue("id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "recording not found")
		return
	}

	stream := newTranscriptionStream(s.engine, s.renderer)
	stream.Serve(r.Context(), w, sess, recording)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	token, err := auth.SessionToken(sess)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid form")
		return
	}

	req := publish.Request{
		Message:       r.FormValue("message"),
		PinToChannel:  r.FormValue("pin_to_channel") == "true",
		NotifyChannel: r.FormValue("notify_channel") == "true",
		Channels:      make(map[string]string),
	}

	// Only enabled languages with a non-empty channel id participate.
	for _, lang := range r.MultipartForm.Value["languages"] {
		channelID := r.FormValue("channel_" + lang)
		if channelID == "" {
			continue
		}
		req.Channels[lang] = channelID
	}
	if len(req.Channels) == 0 {
		writeJSONError(w, http.StatusUnprocessableEntity, "no publish targets selected")
		return
	}

	if image, _, err := r.FormFile("image"); err == nil {
		data, readErr := io.ReadAll(image)
		_ = image.Close()
		if readErr != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid image")
			return
		}
		req.Image = data
	}

	client := s.messenger(token)
	if err := s.pipeline.Publish(r.Context(), client, req); err != nil {
		var notFound *publish.ChannelNotFoundError
		switch {
		case errors.As(err, &notFound):
			writeJSONError(w, http.StatusUnprocessableEntity, notFound.Error())
		default:
			log.Printf("warning: publish failed: %v", err)
			sess.PushNotification(session.Notification{
				Type:    session.NotificationError,
				Title:   "Publish failed",
				Message: "The message could not be published. Please try again.",
			})
			writeJSONError(w, http.StatusBadGateway, "publish failed")
		}
		return
	}

	sess.PushNotification(session.Notification{
		Type:    session.NotificationSuccess,
		Title:   "Message published",
		Message: "Your message was delivered to the selected channels.",
	})

	s.renderer.Render(w, http.StatusSeeOther, "message_published.html", nil)
}

// MessengerFactory builds the per-request messaging client for a session's
// access token. Kept as a named hook so tests can substitute a fake.
func MessengerFactory(apiURL string) func(token string) publish.Messenger {
	return func(token string) publish.Messenger {
		return slack.New(token, slack.WithBaseURL(apiURL))
	}
}
