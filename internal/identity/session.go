// AngelaMos | 2026
// session.go

package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record behind an opaque session token. Only the
// SHA-256 of the token is ever used as a storage key.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type SessionStore interface {
	SaveSession(ctx context.Context, tokenHash string, s *Session) error
	GetSession(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}

// TokenLedger remembers consumed action-token ids so each link works once.
type TokenLedger interface {
	ConsumeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

// ClientInfo is request metadata recorded on new sessions.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// TokenFromHeaders pulls the session token from the named cookie, falling
// back to an Authorization bearer header.
func TokenFromHeaders(headers http.Header, cookieName string) string {
	req := http.Request{Header: headers}
	if c, err := req.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := headers.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
