package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
)

// SessionKey is the key the session token is stored under
const SessionKey = "campuscast_session"

// Verifier checks a sign-in credential and reports the account it belongs to
type Verifier interface {
	Verify(ctx context.Context, credential string) (*identity.Account, error)
}

// SessionProvider is an identity.Provider whose session survives restarts
type SessionProvider struct {
	verifier Verifier
	store    kv.Store
	codec    *SessionCodec
	log      *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	current *identity.Account

	listenerMu sync.Mutex
	listeners  map[int]func(*identity.Account)
	nextID     int
}

var _ identity.Provider = (*SessionProvider)(nil)

// NewSessionProvider creates a provider and restores any stored session. A stored
// token that no longer verifies is removed.
func NewSessionProvider(ctx context.Context, verifier Verifier, store kv.Store, codec *SessionCodec) *SessionProvider {
	p := &SessionProvider{
		verifier:  verifier,
		store:     store,
		codec:     codec,
		log:       logger.Auth(),
		now:       time.Now,
		listeners: make(map[int]func(*identity.Account)),
	}
	p.restore(ctx)
	return p
}

func (p *SessionProvider) restore(ctx context.Context) {
	data, err := p.store.Get(ctx, SessionKey)
	if errors.Is(err, kv.ErrNotFound) {
		p.log.Debug("No stored session")
		return
	}
	if err != nil {
		p.log.Error("Failed to read stored session", "error", err)
		return
	}

	account, err := p.codec.Decode(string(data))
	if err != nil {
		p.log.Warn("Discarding stored session", "error", err)
		if err := p.store.Delete(ctx, SessionKey); err != nil {
			p.log.Error("Failed to delete stored session", "error", err)
		}
		return
	}

	p.current = account
	p.log.Info("Session restored", "email", account.Email)
}

// SignIn verifies credential, stores a new session and notifies listeners
func (p *SessionProvider) SignIn(ctx context.Context, credential string) (*identity.Account, error) {
	account, err := p.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if account.CreationTime.IsZero() {
		account.CreationTime = p.now().UTC().Truncate(time.Millisecond)
	}

	token, err := p.codec.Encode(account)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(ctx, SessionKey, []byte(token)); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	p.mu.Lock()
	p.current = account
	p.mu.Unlock()

	p.log.Info("Session started", "email", account.Email)
	p.notify(account)

	cp := *account
	return &cp, nil
}

// SignOut drops the session. Listeners are only notified when one existed.
func (p *SessionProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	had := p.current != nil
	p.current = nil
	p.mu.Unlock()

	err := p.store.Delete(ctx, SessionKey)
	if err != nil {
		err = fmt.Errorf("failed to delete session: %w", err)
	}

	if had {
		p.log.Info("Session ended")
		p.notify(nil)
	}
	return err
}

// Current returns a copy of the session account, or nil
func (p *SessionProvider) Current() *identity.Account {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil
	}
	cp := *p.current
	return &cp
}

// OnSessionChanged registers fn and immediately calls it with the current session
func (p *SessionProvider) OnSessionChanged(fn func(*identity.Account)) (unsubscribe func()) {
	p.listenerMu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.listenerMu.Unlock()

	fn(p.Current())

	return func() {
		p.listenerMu.Lock()
		defer p.listenerMu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *SessionProvider) notify(account *identity.Account) {
	p.listenerMu.Lock()
	fns := make([]func(*identity.Account), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.listenerMu.Unlock()

	for _, fn := range fns {
		var cp *identity.Account
		if account != nil {
			c := *account
			cp = &c
		}
		fn(cp)
	}
}

// NewVerifier selects the credential verifier named by provider
func NewVerifier(provider, googleClientID string) (Verifier, error) {
	switch provider {
	case "google":
		return NewGoogleVerifier(googleClientID)
	case "local", "":
		return LocalVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth provider: %s", provider)
	}
}
