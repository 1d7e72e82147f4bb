package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/scribeapp/scribe/internal/session"
)

// SessionCookie identifies the session attached to a client.
const SessionCookie = "scribe_session_id"

type contextKey struct{ name string }

var sessionKey = &contextKey{"session"}

// withSession attaches a session to the request: the one named by the
// session cookie when it is valid, a freshly started one otherwise. The
// cookie is (re)set on every response, HttpOnly.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			sess, _ = s.store.GetSession(cookie.Value)
		}
		if sess == nil {
			sess = s.store.StartSession()
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
		})

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next(w, r.WithContext(ctx))
	}
}

// requireUser gates a handler on an authenticated session. Page views are
// redirected to the login page; API-prefixed paths get a 401.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if _, ok := sess.User(); !ok {
			if strings.HasPrefix(r.URL.Path, "/api") {
				writeJSONError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey).(*session.Session)
	return sess
}
