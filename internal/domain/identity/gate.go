package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campuscast-api/internal/logger"
)

// signOutTimeout bounds the forced sign-out of a rejected session.
const signOutTimeout = 5 * time.Second

// ProfilePatch lists the fields a user may change locally
type ProfilePatch struct {
	Name *string `json:"name"`
}

// Gate exposes the signed-in identity to the rest of the application and keeps it
// restricted to a single organizational email domain.
type Gate struct {
	provider Provider
	domain   string
	log      *log.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current *Identity

	subMu       sync.Mutex
	subscribers map[int]func(*Identity)
	nextSub     int

	unsubscribe func()
}

// NewGate creates a gate bound to provider and starts tracking its session
func NewGate(provider Provider, domain string) *Gate {
	g := &Gate{
		provider:    provider,
		domain:      domain,
		log:         logger.Service("identity_gate"),
		now:         time.Now,
		subscribers: make(map[int]func(*Identity)),
	}
	g.unsubscribe = provider.OnSessionChanged(g.handleSession)
	return g
}

// Close stops tracking the provider session
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

// Domain returns the configured email suffix
func (g *Gate) Domain() string {
	return g.domain
}

// CurrentIdentity returns a copy of the signed-in identity, or nil
func (g *Gate) CurrentIdentity() *Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.current == nil {
		return nil
	}
	id := *g.current
	return &id
}

// IsAllowedDomain reports whether the current identity belongs to the configured domain
func (g *Gate) IsAllowedDomain() bool {
	id := g.CurrentIdentity()
	if id == nil {
		return false
	}
	return HasDomain(id.Email, g.domain)
}

// SignIn runs the provider's sign-in with credential. Accounts outside the configured
// domain are signed out again and reported with a *DomainError.
func (g *Gate) SignIn(ctx context.Context, credential string) error {
	account, err := g.provider.SignIn(ctx, credential)
	if err != nil {
		g.log.Error("Login failed", "error", err)
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if account == nil {
		g.log.Error("Login failed", "error", "provider returned no account")
		return ErrLoginFailed
	}

	if !HasDomain(account.Email, g.domain) {
		domainErr := &DomainError{Email: account.Email, Domain: g.domain}
		g.log.Warn(domainErr.UserMessage(), "email", account.Email)

		if err := g.provider.SignOut(ctx); err != nil {
			g.log.Error("Failed to sign out rejected account", "email", account.Email, "error", err)
		}
		g.set(nil)
		return domainErr
	}

	g.set(FromAccount(account, g.now()))
	g.log.Info("User signed in", "email", account.Email)
	return nil
}

// SignOut terminates the provider session
func (g *Gate) SignOut(ctx context.Context) error {
	err := g.provider.SignOut(ctx)
	if err != nil {
		g.log.Error("Sign out failed", "error", err)
	}
	g.set(nil)
	return err
}

// UpdateProfile changes the local display name. It has no effect without an identity
// or with a blank name.
func (g *Gate) UpdateProfile(patch ProfilePatch) bool {
	if patch.Name == nil {
		return false
	}
	name := strings.TrimSpace(*patch.Name)
	if name == "" {
		return false
	}

	g.mu.Lock()
	if g.current == nil {
		g.mu.Unlock()
		return false
	}
	updated := *g.current
	updated.Name = name
	g.current = &updated
	g.mu.Unlock()

	g.publish(&updated)
	return true
}

// Subscribe registers fn to be called after every identity change
func (g *Gate) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()

	id := g.nextSub
	g.nextSub++
	g.subscribers[id] = fn

	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.subscribers, id)
	}
}

// handleSession mirrors the provider session, rejecting restored sessions that
// belong to another domain.
func (g *Gate) handleSession(account *Account) {
	if account == nil {
		g.set(nil)
		return
	}

	if !HasDomain(account.Email, g.domain) {
		g.log.Warn("Rejecting session outside allowed domain", "email", account.Email, "domain", g.domain)
		g.set(nil)

		ctx, cancel := context.WithTimeout(context.Background(), signOutTimeout)
		defer cancel()
		if err := g.provider.SignOut(ctx); err != nil {
			g.log.Error("Failed to sign out rejected session", "email", account.Email, "error", err)
		}
		return
	}

	g.set(FromAccount(account, g.now()))
}

func (g *Gate) set(id *Identity) {
	g.mu.Lock()
	if id == nil && g.current == nil {
		g.mu.Unlock()
		return
	}
	if id != nil && g.current != nil && *id == *g.current {
		g.mu.Unlock()
		return
	}
	g.current = id
	g.mu.Unlock()

	var snapshot *Identity
	if id != nil {
		cp := *id
		snapshot = &cp
	}
	g.publish(snapshot)
}

func (g *Gate) publish(id *Identity) {
	g.subMu.Lock()
	fns := make([]func(*Identity), 0, len(g.subscribers))
	for _, fn := range g.subscribers {
		fns = append(fns, fn)
	}
	g.subMu.Unlock()

	for _, fn := range fns {
		var cp *Identity
		if id != nil {
			c := *id
			cp = &c
		}
		fn(cp)
	}
}
