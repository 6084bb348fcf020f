package rest

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is what the client can read off the session cookie
// without verifying it. Verification stays on the server; the client only
// uses the expiry to decide whether a cached profile is worth showing.
type SessionClaims struct {
	UserID    string
	EmailID   string
	ExpiresAt time.Time
}

// sessionCookie returns the session cookie currently in the jar, or nil
func (c *Client) sessionCookie() *http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == c.cookieName {
			return ck
		}
	}
	return nil
}

// SessionClaims returns the claims of the current session cookie, or nil
// when there is no cookie or it does not parse as a JWT
func (c *Client) SessionClaims() *SessionClaims {
	ck := c.sessionCookie()
	if ck == nil || ck.Value == "" {
		return nil
	}
	return parseSessionClaims(ck.Value)
}

func parseSessionClaims(tokenString string) *SessionClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		slog.Debug("session cookie is not a JWT", "error", err)
		return nil
	}

	out := &SessionClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.UserID = sub
	}
	if email, ok := claims["emailId"].(string); ok {
		out.EmailID = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out
}

// SessionAlive reports whether a session cookie exists and is not known
// to be expired. An opaque (non-JWT) cookie counts as alive; either way
// the server stays the authority via CheckAuth.
func (c *Client) SessionAlive() bool {
	ck := c.sessionCookie()
	if ck == nil || ck.Value == "" {
		return false
	}
	sc := parseSessionClaims(ck.Value)
	if sc == nil {
		return true
	}
	if !sc.ExpiresAt.IsZero() && time.Now().After(sc.ExpiresAt) {
		return false
	}
	return true
}
