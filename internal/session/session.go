package session

import (
	"sync"

	"github.com/scribeapp/scribe/internal/slack"
)

// Well-known session state keys.
const (
	KeyState         = "state"
	KeyNonce         = "nonce"
	KeyAccessToken   = "access_token"
	KeyUser          = "user"
	KeyTeam          = "team"
	KeyChannels      = "channels"
	KeyRecordings    = "recordings"
	KeyNotifications = "notifications"
)

// Session is a per-user key/value state bag with a stable identifier.
// All operations hold the session mutex, so concurrent requests carrying the
// same session id serialize on individual reads and writes. Compound
// read-modify-write sequences across calls are still racy; that matches the
// serving model, which treats same-id concurrency as not linearizable.
type Session struct {
	id string

	mu    sync.Mutex
	state map[string]any
}

func newSession(id string) *Session {
	return &Session{id: id, state: make(map[string]any)}
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Get returns the stored value for key, or def when the key is absent.
func (s *Session) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.state[key]; ok {
		return v
	}
	return def
}

// GetString returns the stored string for key, or "" when the key is absent
// or holds a non-string value.
func (s *Session) GetString(key string) string {
	v, _ := s.Get(key, "").(string)
	return v
}

// Set stores value under key, replacing any existing value.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
}

// Delete removes key from the session state. Deleting an absent key is a
// no-op.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
}

// Append concatenates value onto the list stored under key, creating the
// list when the key is absent. A scalar value is normalized into a
// one-element list first. It returns ErrInvalidAppend when the existing
// value is not a list.
func (s *Session) Append(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := []any{}
	if existing, ok := s.state[key]; ok {
		list, ok := existing.([]any)
		if !ok {
			return ErrInvalidAppend
		}
		current = list
	}

	items, ok := value.([]any)
	if !ok {
		items = []any{value}
	}

	s.state[key] = append(current, items...)
	return nil
}

// Consume returns the stored value for key and deletes it, so a second call
// returns def. Used for exactly-once notification delivery.
func (s *Session) Consume(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.state[key]; ok {
		delete(s.state, key)
		return v
	}
	return def
}

// User returns the authenticated Slack user, if present.
func (s *Session) User() (slack.User, bool) {
	u, ok := s.Get(KeyUser, nil).(slack.User)
	return u, ok
}

func (s *Session) SetUser(u slack.User) { s.Set(KeyUser, u) }

// Team returns the authenticated user's workspace, if present.
func (s *Session) Team() (slack.Team, bool) {
	t, ok := s.Get(KeyTeam, nil).(slack.Team)
	return t, ok
}

func (s *Session) SetTeam(t slack.Team) { s.Set(KeyTeam, t) }

// Channels returns the channel listing hydrated at sign-in.
func (s *Session) Channels() []slack.Channel {
	ch, _ := s.Get(KeyChannels, nil).([]slack.Channel)
	return ch
}

func (s *Session) SetChannels(ch []slack.Channel) { s.Set(KeyChannels, ch) }

// AccessToken returns the OAuth access token, if present.
func (s *Session) AccessToken() (string, bool) {
	tok := s.GetString(KeyAccessToken)
	return tok, tok != ""
}

func (s *Session) SetAccessToken(tok string) { s.Set(KeyAccessToken, tok) }

// Recording returns the recording with the given id, if this session owns it.
func (s *Session) Recording(id string) (Recording, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recordings, _ := s.state[KeyRecordings].(map[string]Recording)
	rec, ok := recordings[id]
	return rec, ok
}

// AddRecording registers an uploaded recording under its id.
func (s *Session) AddRecording(rec Recording) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recordings, ok := s.state[KeyRecordings].(map[string]Recording)
	if !ok {
		recordings = make(map[string]Recording)
		s.state[KeyRecordings] = recordings
	}
	recordings[rec.ID] = rec
}

// SetTranscription fills in the transcription for a stored recording. It is
// a no-op when the recording does not exist.
func (s *Session) SetTranscription(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recordings, _ := s.state[KeyRecordings].(map[string]Recording)
	rec, ok := recordings[id]
	if !ok {
		return
	}
	rec.Transcription = text
	recordings[id] = rec
}

// PushNotification queues a notification for the next page render.
func (s *Session) PushNotification(n Notification) {
	_ = s.Append(KeyNotifications, n)
}

// ConsumeNotifications returns all queued notifications and clears the
// queue. Stale notifications never reappear on a later render.
func (s *Session) ConsumeNotifications() []Notification {
	raw, _ := s.Consume(KeyNotifications, nil).([]any)
	if len(raw) == 0 {
		return nil
	}
	notifications := make([]Notification, 0, len(raw))
	for _, item := range raw {
		if n, ok := item.(Notification); ok {
			notifications = append(notifications, n)
		}
	}
	return notifications
}
