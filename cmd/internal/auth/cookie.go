package auth

import (
	"net/http"
	"strings"
)

// TokenFromCookie extracts the access token from the request's credential
// cookie. This is the only transport accepted for the websocket handshake
// and the synchronous chat endpoints.
func TokenFromCookie(r *http.Request, cookieName string) (string, error) {
	if r == nil {
		return "", ErrTokenMissing
	}
	if strings.TrimSpace(cookieName) == "" {
		cookieName = DefaultCookieName
	}

	c, err := r.Cookie(cookieName)
	if err != nil {
		return "", ErrTokenMissing
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", ErrTokenMissing
	}
	return v, nil
}
