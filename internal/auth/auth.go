// Package auth implements the OAuth handshake state machine: anonymous
// sessions enter a pending state when the login page hands out an
// authorization URL, and become authenticated when the callback verifies
// the returned state, exchanges the code, and hydrates the session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/scribeapp/scribe/internal/session"
	"github.com/scribeapp/scribe/internal/slack"
)

// ErrNotAuthenticated is returned when a session lacks the identity or
// token an operation requires.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrStateMismatch is returned when the callback's state parameter does not
// match the one stored in the session, including when no state was stored.
var ErrStateMismatch = errors.New("oauth state mismatch")

// ErrInvalidToken is returned when the code exchange or the profile
// hydration that follows it fails.
var ErrInvalidToken = errors.New("invalid token")

// Directory is the slice of the messaging platform the callback needs to
// hydrate a session.
type Directory interface {
	Identity(ctx context.Context) (slack.User, error)
	Team(ctx context.Context) (slack.Team, error)
	Channels(ctx context.Context) ([]slack.Channel, error)
}

// Config carries the platform OAuth parameters.
type Config struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TeamID       string
	UserScopes   []string
}

// Flow drives the handshake for individual sessions.
type Flow struct {
	oauth      *oauth2.Config
	teamID     string
	userScopes []string
	directory  func(token string) Directory
}

// NewFlow builds a Flow. The directory factory produces a platform client
// for a freshly exchanged access token.
func NewFlow(cfg Config, directory func(token string) Directory) *Flow {
	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		teamID:     cfg.TeamID,
		userScopes: cfg.UserScopes,
		directory:  directory,
	}
}

// Begin generates a fresh state/nonce pair, stores both in the session, and
// returns the authorization URL to send the user to. Each call starts a new
// handshake attempt with its own pair.
func (f *Flow) Begin(sess *session.Session) string {
	state := session.NewHandshakeToken()
	sess.Set(session.KeyState, state)
	nonce := session.NewHandshakeToken()
	sess.Set(session.KeyNonce, nonce)

	return f.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("scope", ""),
		oauth2.SetAuthURLParam("user_scope", strings.Join(f.userScopes, ",")),
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("team", f.teamID),
	)
}

// Callback resolves a handshake. The stored state/nonce pair is deleted
// unconditionally regardless of outcome, so a handshake can never be
// replayed. A state mismatch (or absent stored state) rejects with
// ErrStateMismatch; a failed exchange or profile fetch rejects with
// ErrInvalidToken. On success the session holds the access token, user,
// team, and channel listing. Every terminal outcome queues a notification.
func (f *Flow) Callback(ctx context.Context, sess *session.Session, code, state string) error {
	defer sess.Delete(session.KeyState)
	defer sess.Delete(session.KeyNonce)

	stored := sess.GetString(session.KeyState)
	if stored == "" || stored != state {
		sess.PushNotification(session.Notification{
			Type:    session.NotificationError,
			Title:   "Sign-in failed",
			Message: "The sign-in request could not be verified. Please try again.",
		})
		return ErrStateMismatch
	}

	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		sess.PushNotification(signInFailed())
		return fmt.Errorf("%w: exchange code: %v", ErrInvalidToken, err)
	}

	client := f.directory(token.AccessToken)

	user, err := client.Identity(ctx)
	if err != nil {
		sess.PushNotification(signInFailed())
		return fmt.Errorf("%w: fetch identity: %v", ErrInvalidToken, err)
	}
	team, err := client.Team(ctx)
	if err != nil {
		sess.PushNotification(signInFailed())
		return fmt.Errorf("%w: fetch team: %v", ErrInvalidToken, err)
	}
	channels, err := client.Channels(ctx)
	if err != nil {
		sess.PushNotification(signInFailed())
		return fmt.Errorf("%w: list channels: %v", ErrInvalidToken, err)
	}

	sess.SetAccessToken(token.AccessToken)
	sess.SetUser(user)
	sess.SetTeam(team)
	sess.SetChannels(channels)

	sess.PushNotification(session.Notification{
		Type:    session.NotificationSuccess,
		Title:   "Signed in",
		Message: fmt.Sprintf("Welcome, %s.", user.DisplayName),
	})
	return nil
}

func signInFailed() session.Notification {
	return session.Notification{
		Type:    session.NotificationError,
		Title:   "Sign-in failed",
		Message: "Slack rejected the sign-in. Please try again.",
	}
}

// SessionUser returns the authenticated user for a session, or
// ErrNotAuthenticated when identity is absent.
func SessionUser(sess *session.Session) (slack.User, error) {
	user, ok := sess.User()
	if !ok {
		return slack.User{}, ErrNotAuthenticated
	}
	return user, nil
}

// SessionToken returns the session's access token, or ErrNotAuthenticated
// when absent.
func SessionToken(sess *session.Session) (string, error) {
	token, ok := sess.AccessToken()
	if !ok {
		return "", ErrNotAuthenticated
	}
	return token, nil
}
