// AngelaMos | 2026
// tokens.go

package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/storefront/internal/config"
	"github.com/carterperez-dev/storefront/internal/core"
)

// Purpose binds an action token to the one flow that may consume it.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

type ActionClaims struct {
	TokenID   string
	UserID    string
	Email     string
	Purpose   Purpose
	ExpiresAt time.Time
}

// TokenSigner issues and checks the single-use links mailed to users. It is
// not used for sessions, which stay opaque and server-side.
type TokenSigner struct {
	privateKey jwk.Key
	publicKey  jwk.Key
	issuer     string
	audience   string
	now        func() time.Time
}

func NewTokenSigner(cfg config.TokensConfig) (*TokenSigner, error) {
	privateKeyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	privateKey, err := jwk.ParseKey(privateKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return newTokenSigner(privateKey, cfg.Issuer, cfg.Audience)
}

// NewTokenSignerFromKey builds a signer around an in-memory ECDSA key.
func NewTokenSignerFromKey(
	key *ecdsa.PrivateKey,
	issuer, audience string,
) (*TokenSigner, error) {
	privateKey, err := jwk.Import(key)
	if err != nil {
		return nil, fmt.Errorf("import private key: %w", err)
	}

	return newTokenSigner(privateKey, issuer, audience)
}

func newTokenSigner(
	privateKey jwk.Key,
	issuer, audience string,
) (*TokenSigner, error) {
	if err := privateKey.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, fmt.Errorf("set algorithm: %w", err)
	}

	if err := privateKey.Set(jwk.KeyIDKey, uuid.New().String()[:8]); err != nil {
		return nil, fmt.Errorf("set key id: %w", err)
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	return &TokenSigner{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}, nil
}

func (s *TokenSigner) KeyID() string {
	var kid string
	//nolint:errcheck // key id always set in newTokenSigner
	_ = s.privateKey.Get(jwk.KeyIDKey, &kid)
	return kid
}

func (s *TokenSigner) Sign(
	purpose Purpose,
	userID, email string,
	ttl time.Duration,
) (string, *ActionClaims, error) {
	now := s.now()
	claims := &ActionClaims{
		TokenID:   uuid.New().String(),
		UserID:    userID,
		Email:     email,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
	}

	token, err := jwt.NewBuilder().
		JwtID(claims.TokenID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		Subject(userID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(claims.ExpiresAt).
		Claim("email", email).
		Claim("purpose", string(purpose)).
		Build()
	if err != nil {
		return "", nil, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), s.privateKey))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), claims, nil
}

// Verify checks signature, issuer, audience, expiry and purpose. Expired
// tokens wrap core.ErrTokenExpired, everything else core.ErrTokenInvalid.
func (s *TokenSigner) Verify(raw string, purpose Purpose) (*ActionClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), s.publicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var got string
	if err := token.Get("purpose", &got); err != nil || Purpose(got) != purpose {
		return nil, fmt.Errorf(
			"verify token: wrong purpose: %w",
			core.ErrTokenInvalid,
		)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	jti, ok := token.JwtID()
	if !ok || jti == "" {
		return nil, fmt.Errorf(
			"verify token: missing jti: %w",
			core.ErrTokenInvalid,
		)
	}

	var email string
	//nolint:errcheck // email is informational, the subject is authoritative
	_ = token.Get("email", &email)

	exp, _ := token.Expiration()

	return &ActionClaims{
		TokenID:   jti,
		UserID:    subject,
		Email:     email,
		Purpose:   purpose,
		ExpiresAt: exp,
	}, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}

// GenerateKeyPair writes a fresh P-256 key pair as PEM files.
func GenerateKeyPair(privateKeyPath, publicKeyPath string) error {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	jwkPrivate, err := jwk.Import(privateKey)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}

	privatePEM, err := jwk.Pem(jwkPrivate)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	if writeErr := os.WriteFile(privateKeyPath, privatePEM, 0o600); writeErr != nil {
		return fmt.Errorf("write private key: %w", writeErr)
	}

	jwkPublic, err := jwkPrivate.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	publicPEM, err := jwk.Pem(jwkPublic)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	//nolint:gosec // G306: public key is intentionally world-readable
	if writeErr := os.WriteFile(publicKeyPath, publicPEM, 0o644); writeErr != nil {
		return fmt.Errorf("write public key: %w", writeErr)
	}

	return nil
}
