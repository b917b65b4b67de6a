package auth

import (
	"net/http"
	"strings"
	"time"
)

// AccessTokenCookie carries the session JWT for browser clients.
const AccessTokenCookie = "access_token"

// SessionCookie wraps a signed token for the login response. The cookie
// lives as long as the token itself.
func SessionCookie(token string, secure bool) *http.Cookie {
	return sessionCookie(token, time.Now().Add(TokenTTL), int(TokenTTL.Seconds()), secure)
}

// ExpiredSessionCookie clears the session on logout.
func ExpiredSessionCookie(secure bool) *http.Cookie {
	return sessionCookie("", time.Unix(0, 0), -1, secure)
}

func sessionCookie(value string, expires time.Time, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExtractAccessToken prefers a non-empty session cookie and falls back to
// an Authorization header with the Bearer scheme in any case.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
