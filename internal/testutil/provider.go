// AngelaMos | 2026
// provider.go

package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/internal/identity"
	"github.com/carterperez-dev/storefront/internal/mail"
)

const CookieName = "storefront.session_token"

type ProviderFixture struct {
	Provider *identity.Provider
	Users    *Users
	Sessions *Sessions
	Mailer   *Mailer
	Signer   *identity.TokenSigner
}

// NewProvider wires an identity.Provider over in-memory stores and a fresh
// signing key.
func NewProvider(t testing.TB) *ProviderFixture {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	signer, err := identity.NewTokenSignerFromKey(key, "storefront-test", "storefront-test")
	require.NoError(t, err)

	f := &ProviderFixture{
		Users:    NewUsers(),
		Sessions: NewSessions(),
		Mailer:   &Mailer{},
		Signer:   signer,
	}

	f.Provider = identity.NewProvider(identity.Deps{
		Users:    f.Users,
		Sessions: f.Sessions,
		Ledger:   f.Sessions,
		Signer:   signer,
		Mailer:   f.Mailer,
		Logger:   DiscardLogger(),
		Options: identity.Options{
			CookieName:       CookieName,
			SessionTTL:       time.Hour,
			PublicURL:        "http://localhost:3000",
			VerifyEmailTTL:   24 * time.Hour,
			PasswordResetTTL: time.Hour,
		},
	})

	return f
}

// LastMail waits for background delivery, then returns the newest message.
func (f *ProviderFixture) LastMail() (mail.Message, bool) {
	f.Provider.Wait()
	return f.Mailer.Last()
}

func (f *ProviderFixture) MailCount() int {
	f.Provider.Wait()
	return f.Mailer.Count()
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TokenFromLink extracts the token query parameter from the first link in
// a mailed body.
func TokenFromLink(t testing.TB, body string) string {
	t.Helper()

	for _, field := range strings.Fields(body) {
		if !strings.HasPrefix(field, "http") {
			continue
		}
		u, err := url.Parse(field)
		require.NoError(t, err)
		if tok := u.Query().Get("token"); tok != "" {
			return tok
		}
	}

	t.Fatalf("no token link in body: %q", body)
	return ""
}
