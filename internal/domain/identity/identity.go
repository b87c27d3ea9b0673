// Package identity holds the signed-in person model and the gate that bridges it to
// an external identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AllowedDomain is the organizational email suffix accepted by the gate.
const AllowedDomain = "@citchennai.net"

// PlaceholderImage is used when the provider reports no avatar.
const PlaceholderImage = "/placeholder-user.jpg"

var (
	ErrLoginFailed        = errors.New("login failed")
	ErrUnauthorizedDomain = errors.New("unauthorized domain")
)

// Identity represents a signed-in person
type Identity struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Image    string    `json:"image"`
	JoinedAt time.Time `json:"joined_at"`
}

// Account is what a provider session reports about the signed-in user
type Account struct {
	DisplayName  string
	Email        string
	PhotoURL     string
	CreationTime time.Time
}

// Provider is the external identity service. OnSessionChanged must invoke fn once
// with the current session (nil when signed out) and again on every change.
type Provider interface {
	SignIn(ctx context.Context, credential string) (*Account, error)
	SignOut(ctx context.Context) error
	OnSessionChanged(fn func(*Account)) (unsubscribe func())
}

// DomainError is returned when a provider session belongs to a non-allowed domain
type DomainError struct {
	Email  string
	Domain string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("unauthorized domain: %s is not a %s account", e.Email, e.Domain)
}

// Unwrap lets errors.Is match ErrUnauthorizedDomain
func (e *DomainError) Unwrap() error {
	return ErrUnauthorizedDomain
}

// UserMessage returns the text shown to the person trying to sign in
func (e *DomainError) UserMessage() string {
	return "Not an official account. Please use your " + e.Domain + " email."
}

// HasDomain reports whether email ends with domain, ignoring case
func HasDomain(email, domain string) bool {
	if email == "" || domain == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), strings.ToLower(domain))
}

// FromAccount builds an Identity snapshot applying the usual fallbacks
func FromAccount(a *Account, now time.Time) *Identity {
	name := strings.TrimSpace(a.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(a.Email, "@")
	}

	image := a.PhotoURL
	if image == "" {
		image = PlaceholderImage
	}

	joined := a.CreationTime
	if joined.IsZero() {
		joined = now
	}

	return &Identity{
		Name:     name,
		Email:    a.Email,
		Image:    image,
		JoinedAt: joined.UTC(),
	}
}
