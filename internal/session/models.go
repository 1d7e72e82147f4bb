package session

// Recording is an uploaded voice note owned by a session. The transcription
// is filled in once by the transcription stream; the file itself lives under
// the configured upload path.
type Recording struct {
	ID            string
	FilePath      string
	Transcription string
}

// Notification types surfaced on the next page render.
const (
	NotificationSuccess = "success"
	NotificationError   = "error"
)

// Notification is a short-lived, session-scoped, read-once message.
type Notification struct {
	Type    string
	Title   string
	Message string
}
