// AngelaMos | 2026
// memory.go

// Package testutil holds in-memory stand-ins for Postgres, Redis and SMTP
// so handler and provider tests run without external services.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/identity"
	"github.com/carterperez-dev/storefront/internal/mail"
	"github.com/carterperez-dev/storefront/internal/rbac"
	"github.com/carterperez-dev/storefront/internal/user"
)

// Users implements user.Repository over a map. WithinTx serializes
// transactions with a single lock.
type Users struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	byID   map[string]user.User
	Writes int
}

func NewUsers() *Users {
	return &Users{byID: make(map[string]user.User)}
}

// Put stores u directly, bypassing uniqueness checks.
func (s *Users) Put(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}
	s.byID[u.ID] = u
}

func (s *Users) Get(id string) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	return u, ok
}

func (s *Users) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.ErrDuplicateKey
		}
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.byID[u.ID] = *u
	s.Writes++
	return nil
}

func (s *Users) GetByID(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.byID {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Users) GetByIDForUpdate(ctx context.Context, id string) (*user.User, error) {
	return s.GetByID(ctx, id)
}

func (s *Users) UpdateRoleIf(
	_ context.Context,
	id string,
	expected, next rbac.Role,
) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || u.Role != expected {
		return time.Time{}, core.ErrConflict
	}

	u.Role = next
	u.UpdatedAt = time.Now()
	s.byID[id] = u
	s.Writes++
	return u.UpdatedAt, nil
}

func (s *Users) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.mutate(id, func(u *user.User) { u.PasswordHash = passwordHash })
}

func (s *Users) MarkEmailVerified(_ context.Context, id string) error {
	return s.mutate(id, func(u *user.User) { u.EmailVerified = true })
}

func (s *Users) mutate(id string, fn func(*user.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	s.byID[id] = u
	s.Writes++
	return nil
}

func (s *Users) List(_ context.Context, params user.ListUsersParams) ([]user.User, int, error) {
	params.Normalize()

	s.mu.Lock()
	all := make([]user.User, 0, len(s.byID))
	for _, u := range s.byID {
		if params.Role != "" && u.Role != params.Role {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(strings.ToLower(u.Email+" "+u.Name), strings.ToLower(params.Search)) {
			continue
		}
		all = append(all, u)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return all[start:end], total, nil
}

func (s *Users) CountByRole(context.Context) (map[rbac.Role]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[rbac.Role]int)
	for _, u := range s.byID {
		counts[u.Role]++
	}
	return counts, nil
}

func (s *Users) WithinTx(_ context.Context, fn func(user.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

// Sessions implements identity.SessionStore and identity.TokenLedger.
type Sessions struct {
	mu     sync.Mutex
	byHash map[string]identity.Session
	used   map[string]time.Time
	Err    error
}

func NewSessions() *Sessions {
	return &Sessions{
		byHash: make(map[string]identity.Session),
		used:   make(map[string]time.Time),
	}
}

func (s *Sessions) SaveSession(_ context.Context, tokenHash string, sess *identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.byHash[tokenHash] = *sess
	return nil
}

func (s *Sessions) GetSession(_ context.Context, tokenHash string) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	sess, ok := s.byHash[tokenHash]
	if !ok {
		return nil, identity.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *Sessions) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byHash, tokenHash)
	return nil
}

func (s *Sessions) DeleteUserSessions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, sess := range s.byHash {
		if sess.UserID == userID {
			delete(s.byHash, h)
		}
	}
	return nil
}

func (s *Sessions) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sess := range s.byHash {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Sessions) ConsumeToken(_ context.Context, tokenID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return false, s.Err
	}
	if exp, ok := s.used[tokenID]; ok && time.Now().Before(exp) {
		return false, nil
	}
	s.used[tokenID] = time.Now().Add(ttl)
	return true, nil
}

// Mailer records every message it is asked to send. While Hold is set,
// Send blocks until Release is called.
type Mailer struct {
	mu   sync.Mutex
	Sent []mail.Message
	gate chan struct{}
}

func (m *Mailer) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

func (m *Mailer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

func (m *Mailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *Mailer) Last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return mail.Message{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

var (
	_ user.Repository       = (*Users)(nil)
	_ identity.UserStore    = (*Users)(nil)
	_ identity.SessionStore = (*Sessions)(nil)
	_ identity.TokenLedger  = (*Sessions)(nil)
	_ mail.Sender           = (*Mailer)(nil)
)
