// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// ArgonParams are the argon2id cost settings encoded into every hash.
type ArgonParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var DefaultArgonParams = ArgonParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// PasswordHasher produces and checks PHC-formatted argon2id hashes. Hashes
// made with other params still verify and are flagged for rehash.
type PasswordHasher struct {
	params ArgonParams

	dummyOnce sync.Once
	dummy     string
}

func NewPasswordHasher(params ArgonParams) *PasswordHasher {
	return &PasswordHasher{params: params}
}

var passwords = NewPasswordHasher(DefaultArgonParams)

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Threads,
		h.params.KeyLen,
	)

	return encodeHash(h.params, salt, key), nil
}

func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	params, salt, want, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey(
		[]byte(password),
		salt,
		params.Time,
		params.Memory,
		params.Threads,
		params.KeyLen,
	)

	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// VerifyAndUpgrade checks password and, when the stored hash was made with
// stale params, returns a fresh hash for the caller to persist. A failed
// rehash still reports the password as valid.
func (h *PasswordHasher) VerifyAndUpgrade(
	password, encoded string,
) (bool, string, error) {
	ok, err := h.Verify(password, encoded)
	if err != nil || !ok {
		return false, "", err
	}

	if !h.NeedsRehash(encoded) {
		return true, "", nil
	}

	upgraded, err := h.Hash(password)
	if err != nil {
		return true, "", nil //nolint:nilerr
	}
	return true, upgraded, nil
}

// VerifyTimingSafe always runs one argon2id derivation, against a throwaway
// hash when encoded is nil or empty, so unknown accounts cost the same as
// wrong passwords.
func (h *PasswordHasher) VerifyTimingSafe(
	password string,
	encoded *string,
) (bool, string, error) {
	if encoded == nil || *encoded == "" {
		_, _ = h.Verify(password, h.dummyHash())
		return false, "", nil
	}
	return h.VerifyAndUpgrade(password, *encoded)
}

func (h *PasswordHasher) dummyHash() string {
	h.dummyOnce.Do(func() {
		salt := make([]byte, h.params.SaltLen)
		key := argon2.IDKey(
			[]byte("storefront-dummy"),
			salt,
			h.params.Time,
			h.params.Memory,
			h.params.Threads,
			h.params.KeyLen,
		)
		h.dummy = encodeHash(h.params, salt, key)
	})
	return h.dummy
}

func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	params, _, _, err := decodeHash(encoded)
	if err != nil {
		return true
	}
	return params != h.params
}

func HashPassword(password string) (string, error) {
	return passwords.Hash(password)
}

func VerifyPassword(password, encoded string) (bool, error) {
	return passwords.Verify(password, encoded)
}

func VerifyPasswordTimingSafe(
	password string,
	encoded *string,
) (bool, string, error) {
	return passwords.VerifyTimingSafe(password, encoded)
}

func encodeHash(p ArgonParams, salt, key []byte) string {
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodeHash(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: version: %w", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: argon2 version %d", ErrMalformedHash, version)
	}

	if _, err := fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&p.Memory,
		&p.Time,
		&p.Threads,
	); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %w", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %w", ErrMalformedHash, err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: key: %w", ErrMalformedHash, err)
	}

	//nolint:gosec // argon2id keys here are 32 bytes
	p.KeyLen = uint32(len(key))
	//nolint:gosec // salt length is at most a few dozen bytes
	p.SaltLen = uint32(len(salt))

	return p, salt, key, nil
}

// GenerateSessionToken returns 32 random bytes, base64url encoded. Only its
// HashToken digest is ever stored.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
