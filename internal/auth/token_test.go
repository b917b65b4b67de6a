package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractAccessToken(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		header string
		want   string
	}{
		{name: "session cookie wins", cookie: SessionCookie("from-cookie", true), header: "Bearer from-header", want: "from-cookie"},
		{name: "bearer header", header: "Bearer from-header", want: "from-header"},
		{name: "scheme is case insensitive", header: "bearer  from-header ", want: "from-header"},
		{name: "cleared cookie falls back to header", cookie: ExpiredSessionCookie(true), header: "Bearer from-header", want: "from-header"},
		{name: "other cookie name ignored", cookie: &http.Cookie{Name: "token", Value: "x"}, want: ""},
		{name: "basic auth rejected", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "scheme without token", header: "Bearer", want: ""},
		{name: "nothing sent", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders/my-orders", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ExtractAccessToken(req))
		})
	}
}

func TestSessionCookie(t *testing.T) {
	c := SessionCookie("jwt", false)

	assert.Equal(t, AccessTokenCookie, c.Name)
	assert.Equal(t, "jwt", c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int(TokenTTL.Seconds()), c.MaxAge)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), c.Expires, time.Minute)

	cleared := ExpiredSessionCookie(true)
	assert.Equal(t, AccessTokenCookie, cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Secure)
	assert.Negative(t, cleared.MaxAge)
}
