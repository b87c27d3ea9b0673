// Package auth implements identity.Provider: credentials are checked by a Verifier
// and the resulting session is kept as a signed token in the key-value store.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
)

const (
	Issuer   = "campuscast"
	Audience = "campuscast-web"

	keyInfo = "campuscast session signing key"
	keySize = 32
)

// ErrInvalidSession is returned for tokens that fail signature, claim or expiry checks
var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the payload of a stored session token. The subject is the email.
type SessionClaims struct {
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	JoinedAt int64  `json:"joined_at,omitempty"`
	jwt.RegisteredClaims
}

// SessionCodec signs and verifies session tokens
type SessionCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// DeriveKey expands secret into an HS256 signing key
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}

	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

// NewSessionCodec creates a codec whose tokens expire after ttl
func NewSessionCodec(secret string, ttl time.Duration) (*SessionCodec, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %v", ttl)
	}
	return &SessionCodec{key: key, ttl: ttl, now: time.Now}, nil
}

// Encode issues a token for account
func (c *SessionCodec) Encode(account *identity.Account) (string, error) {
	now := c.now()

	claims := SessionClaims{
		Name:    account.DisplayName,
		Picture: account.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   account.Email,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	if !account.CreationTime.IsZero() {
		claims.JoinedAt = account.CreationTime.UnixMilli()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns the account it was issued for
func (c *SessionCodec) Decode(token string) (*identity.Account, error) {
	var claims SessionClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(Audience),
		jwt.WithIssuer(Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	account := &identity.Account{
		DisplayName: claims.Name,
		Email:       claims.Subject,
		PhotoURL:    claims.Picture,
	}
	if claims.JoinedAt > 0 {
		account.CreationTime = time.UnixMilli(claims.JoinedAt).UTC()
	}
	return account, nil
}
