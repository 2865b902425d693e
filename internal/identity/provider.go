// AngelaMos | 2026
// provider.go

// Package identity is the credential and session provider behind the API.
// It owns password verification, opaque server-side sessions, and the
// single-use tokens mailed for email verification and password resets.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/storefront/internal/config"
	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/mail"
	"github.com/carterperez-dev/storefront/internal/rbac"
	"github.com/carterperez-dev/storefront/internal/user"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRoleNotSelectable  = errors.New("role cannot be chosen at registration")
)

type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error
}

type Options struct {
	CookieName       string
	SessionTTL       time.Duration
	PublicURL        string
	VerifyEmailTTL   time.Duration
	PasswordResetTTL time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CookieName:       cfg.Session.CookieName,
		SessionTTL:       cfg.Session.TTL,
		PublicURL:        cfg.App.PublicURL,
		VerifyEmailTTL:   cfg.Tokens.VerifyEmailExpire,
		PasswordResetTTL: cfg.Tokens.PasswordResetExpire,
	}
}

type Deps struct {
	Users    UserStore
	Sessions SessionStore
	Ledger   TokenLedger
	Signer   *TokenSigner
	Mailer   mail.Sender
	Logger   *slog.Logger
	Options  Options
}

type Provider struct {
	users    UserStore
	sessions SessionStore
	ledger   TokenLedger
	signer   *TokenSigner
	mailer   mail.Sender
	logger   *slog.Logger
	opts     Options
	now      func() time.Time

	outgoing sync.WaitGroup
}

const mailSendTimeout = 30 * time.Second

func NewProvider(d Deps) *Provider {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		users:    d.Users,
		sessions: d.Sessions,
		ledger:   d.Ledger,
		signer:   d.Signer,
		mailer:   d.Mailer,
		logger:   logger,
		opts:     d.Options,
		now:      time.Now,
	}
}

func (p *Provider) CookieName() string {
	return p.opts.CookieName
}

type SignUpInput struct {
	Email    string
	Password string
	Name     string
	Role     rbac.Role
	Client   ClientInfo
}

type AuthResult struct {
	User    *user.User
	Session *Session
	Token   string
}

// SignUp creates the account, opens a session for it, and mails a
// verification link. Mail failures are logged and do not fail the sign-up.
func (p *Provider) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	role := in.Role
	if role == "" {
		role = rbac.Customer
	}
	if role != rbac.Customer && role != rbac.ShopManager {
		return nil, fmt.Errorf("sign up: %w", ErrRoleNotSelectable)
	}

	passwordHash, err := core.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Email:        user.NormalizeEmail(in.Email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
	}

	if err := p.users.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sess, token, err := p.openSession(ctx, u.ID, in.Client)
	if err != nil {
		return nil, err
	}

	if err := p.sendVerification(ctx, u); err != nil {
		p.logger.WarnContext(ctx, "verification email not sent",
			"user_id", u.ID,
			"error", err,
		)
	}

	return &AuthResult{User: u, Session: sess, Token: token}, nil
}

// SignIn verifies the password in constant time whether or not the account
// exists and upgrades outdated hashes on success.
func (p *Provider) SignIn(
	ctx context.Context,
	email, password string,
	client ClientInfo,
) (*AuthResult, error) {
	u, err := p.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention
			_, _, _ = core.VerifyPasswordTimingSafe(password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(password, &u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		if err := p.users.UpdatePassword(ctx, u.ID, newHash); err != nil {
			p.logger.WarnContext(ctx, "password rehash failed",
				"user_id", u.ID,
				"error", err,
			)
		}
	}

	sess, token, err := p.openSession(ctx, u.ID, client)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: u, Session: sess, Token: token}, nil
}

func (p *Provider) SignOut(ctx context.Context, headers http.Header) error {
	token := TokenFromHeaders(headers, p.opts.CookieName)
	if token == "" {
		return nil
	}

	if err := p.sessions.DeleteSession(ctx, core.HashToken(token)); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (p *Provider) SignOutEverywhere(ctx context.Context, userID string) error {
	if err := p.sessions.DeleteUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("sign out everywhere: %w", err)
	}
	return nil
}

// GetSession looks up the session presented in headers. A missing, unknown
// or expired session yields (nil, nil); only store failures return an error.
func (p *Provider) GetSession(ctx context.Context, headers http.Header) (sess *Session, err error) {
	ctx, span := core.StartSpan(ctx, "identity.GetSession")
	defer func() {
		span.SetAttributes(attribute.Bool("session.present", sess != nil))
		core.EndSpan(span, err)
	}()

	token := TokenFromHeaders(headers, p.opts.CookieName)
	if token == "" {
		return nil, nil
	}

	found, lookupErr := p.sessions.GetSession(ctx, core.HashToken(token))
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("session lookup: %w: %w", core.ErrUpstream, lookupErr)
	}

	if found.Expired(p.now()) {
		return nil, nil
	}
	return found, nil
}

// ResolveIdentity maps the presented session onto the current user row. The
// row is read on every call so role changes apply to the next request.
func (p *Provider) ResolveIdentity(
	ctx context.Context,
	headers http.Header,
) (*rbac.Identity, error) {
	sess, err := p.GetSession(ctx, headers)
	if err != nil || sess == nil {
		return nil, err
	}

	u, err := p.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session user: %w: %w", core.ErrUpstream, err)
	}

	return u.Identity(), nil
}

// RequestPasswordReset mails a reset link when the address is registered.
// Unknown addresses succeed silently. Delivery happens in the background.
func (p *Provider) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := p.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	token, _, err := p.signer.Sign(
		PurposeResetPassword,
		u.ID,
		u.Email,
		p.opts.PasswordResetTTL,
	)
	if err != nil {
		return fmt.Errorf("sign reset token: %w", err)
	}

	msg, err := mail.PasswordResetMessage(u.Email, mail.LinkVars{
		Name: u.Name,
		Link: p.link("/reset-password", token),
		TTL:  p.opts.PasswordResetTTL.String(),
	})
	if err != nil {
		return err
	}

	p.deliver(ctx, msg, u.ID)
	return nil
}

// ResetPassword consumes a reset token, stores the new hash and ends every
// session the user had open.
func (p *Provider) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := p.consume(ctx, token, PurposeResetPassword)
	if err != nil {
		return err
	}

	passwordHash, err := core.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := p.users.UpdatePassword(ctx, claims.UserID, passwordHash); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("reset password: %w", core.ErrTokenInvalid)
		}
		return fmt.Errorf("reset password: %w", err)
	}

	if err := p.sessions.DeleteUserSessions(ctx, claims.UserID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	return nil
}

// VerifyEmail consumes a verification token and marks the address verified.
// The returned user reflects the stored state after the update.
func (p *Provider) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	claims, err := p.consume(ctx, token, PurposeVerifyEmail)
	if err != nil {
		return nil, err
	}

	if err := p.users.MarkEmailVerified(ctx, claims.UserID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify email: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("verify email: %w", err)
	}

	u, err := p.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}

	return u, nil
}

// SendVerificationEmail re-sends the verification link. Unknown and already
// verified addresses succeed silently.
func (p *Provider) SendVerificationEmail(ctx context.Context, email string) error {
	u, err := p.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	if u.EmailVerified {
		return nil
	}

	return p.sendVerification(ctx, u)
}

func (p *Provider) sendVerification(ctx context.Context, u *user.User) error {
	token, _, err := p.signer.Sign(
		PurposeVerifyEmail,
		u.ID,
		u.Email,
		p.opts.VerifyEmailTTL,
	)
	if err != nil {
		return fmt.Errorf("sign verification token: %w", err)
	}

	msg, err := mail.VerifyEmailMessage(u.Email, mail.LinkVars{
		Name: u.Name,
		Link: p.link("/verify-email", token),
		TTL:  p.opts.VerifyEmailTTL.String(),
	})
	if err != nil {
		return err
	}

	p.deliver(ctx, msg, u.ID)
	return nil
}

// deliver sends msg in the background. Whether an address is registered
// must not show up in how long the request takes, so callers never wait on
// SMTP.
func (p *Provider) deliver(ctx context.Context, msg mail.Message, userID string) {
	ctx = context.WithoutCancel(ctx)

	p.outgoing.Go(func() {
		sendCtx, cancel := context.WithTimeout(ctx, mailSendTimeout)
		defer cancel()

		if err := p.mailer.Send(sendCtx, msg); err != nil {
			p.logger.WarnContext(sendCtx, "email not sent",
				"user_id", userID,
				"subject", msg.Subject,
				"error", err,
			)
		}
	})
}

// Wait blocks until every background email has been handed to the mailer.
func (p *Provider) Wait() {
	p.outgoing.Wait()
}

func (p *Provider) consume(
	ctx context.Context,
	token string,
	purpose Purpose,
) (*ActionClaims, error) {
	claims, err := p.signer.Verify(token, purpose)
	if err != nil {
		return nil, err
	}

	ttl := claims.ExpiresAt.Sub(p.now())
	first, err := p.ledger.ConsumeToken(ctx, claims.TokenID, ttl)
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if !first {
		return nil, fmt.Errorf("token already used: %w", core.ErrTokenInvalid)
	}

	return claims, nil
}

func (p *Provider) openSession(
	ctx context.Context,
	userID string,
	client ClientInfo,
) (*Session, string, error) {
	token, err := core.GenerateSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	now := p.now()
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.opts.SessionTTL),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}

	if err := p.sessions.SaveSession(ctx, core.HashToken(token), sess); err != nil {
		return nil, "", fmt.Errorf("open session: %w", err)
	}

	return sess, token, nil
}

func (p *Provider) link(path, token string) string {
	return strings.TrimRight(p.opts.PublicURL, "/") + path + "?token=" + url.QueryEscape(token)
}

var _ rbac.Resolver = (*Provider)(nil)
