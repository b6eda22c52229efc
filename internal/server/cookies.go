package server

import (
	"net/http"
	"strings"
	"time"

	"trackitnow-backend/internal/chatbot"
)

const (
	// CookieName is the name of the chat session cookie
	CookieName = "trackit_session"
	// CookieMaxAge is how long the browser keeps the cookie
	CookieMaxAge = 30 * time.Minute
	// SessionHeader carries the session id for clients without cookies
	SessionHeader = "X-Session-Id"
)

// SetSessionCookie sets an HTTP-only session cookie
func SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionCookie reads the session ID from the cookie
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// resolveSessionID picks the session id from the request body, then the
// X-Session-Id header, then the cookie, falling back to the default sentinel.
func resolveSessionID(r *http.Request, fromBody string) string {
	if sid := strings.TrimSpace(fromBody); sid != "" {
		return sid
	}
	if sid := strings.TrimSpace(r.Header.Get(SessionHeader)); sid != "" {
		return sid
	}
	if sid, err := GetSessionCookie(r); err == nil && strings.TrimSpace(sid) != "" {
		return sid
	}
	return chatbot.DefaultSessionID
}
