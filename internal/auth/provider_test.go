package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
)

func newTestProvider(t *testing.T, store kv.Store) *SessionProvider {
	t.Helper()
	codec, err := NewSessionCodec("test-secret", time.Hour)
	require.NoError(t, err)
	return NewSessionProvider(context.Background(), LocalVerifier{}, store, codec)
}

func TestSessionProvider_SignInPersistsSession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	p := newTestProvider(t, store)

	var seen []*identity.Account
	unsubscribe := p.OnSessionChanged(func(a *identity.Account) { seen = append(seen, a) })
	defer unsubscribe()

	require.Len(t, seen, 1)
	assert.Nil(t, seen[0], "listener is called immediately with the current session")

	account, err := p.SignIn(ctx, "Asha <asha@citchennai.net>")
	require.NoError(t, err)
	assert.Equal(t, "asha@citchennai.net", account.Email)
	assert.Equal(t, "Asha", account.DisplayName)
	assert.False(t, account.CreationTime.IsZero())

	require.Len(t, seen, 2)
	assert.Equal(t, "asha@citchennai.net", seen[1].Email)

	_, err = store.Get(ctx, SessionKey)
	assert.NoError(t, err)
}

func TestSessionProvider_RestoresSession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	first := newTestProvider(t, store)
	_, err := first.SignIn(ctx, "ravi@citchennai.net")
	require.NoError(t, err)

	second := newTestProvider(t, store)
	restored := second.Current()
	require.NotNil(t, restored)
	assert.Equal(t, "ravi@citchennai.net", restored.Email)

	var got *identity.Account
	second.OnSessionChanged(func(a *identity.Account) { got = a })
	require.NotNil(t, got)
	assert.Equal(t, "ravi@citchennai.net", got.Email)
}

func TestSessionProvider_DiscardsInvalidStoredSession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Put(ctx, SessionKey, []byte("garbage")))

	p := newTestProvider(t, store)
	assert.Nil(t, p.Current())

	_, err := store.Get(ctx, SessionKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestSessionProvider_SignOut(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	p := newTestProvider(t, store)

	calls := 0
	p.OnSessionChanged(func(*identity.Account) { calls++ })

	require.NoError(t, p.SignOut(ctx))
	assert.Equal(t, 1, calls, "signing out without a session notifies nobody")

	_, err := p.SignIn(ctx, "asha@citchennai.net")
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx))
	assert.Equal(t, 3, calls)
	assert.Nil(t, p.Current())

	_, err = store.Get(ctx, SessionKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

type rejectingVerifier struct{ err error }

func (v rejectingVerifier) Verify(context.Context, string) (*identity.Account, error) {
	return nil, v.err
}

func TestSessionProvider_VerifierFailure(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	codec, err := NewSessionCodec("test-secret", time.Hour)
	require.NoError(t, err)

	boom := errors.New("popup closed")
	p := NewSessionProvider(ctx, rejectingVerifier{err: boom}, store, codec)

	_, err = p.SignIn(ctx, "anything")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, p.Current())
}

func TestSessionProvider_WithGate(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	p := newTestProvider(t, store)

	gate := identity.NewGate(p, identity.AllowedDomain)
	defer gate.Close()

	err := gate.SignIn(ctx, "mallory@gmail.com")
	assert.ErrorIs(t, err, identity.ErrUnauthorizedDomain)
	assert.Nil(t, gate.CurrentIdentity())
	assert.Nil(t, p.Current())

	_, err = store.Get(ctx, SessionKey)
	assert.ErrorIs(t, err, kv.ErrNotFound, "a rejected session is not left behind")

	require.NoError(t, gate.SignIn(ctx, "asha@citchennai.net"))
	id := gate.CurrentIdentity()
	require.NotNil(t, id)
	assert.Equal(t, "asha", id.Name)
	assert.Equal(t, identity.PlaceholderImage, id.Image)
}

func TestNewVerifier(t *testing.T) {
	v, err := NewVerifier("local", "")
	require.NoError(t, err)
	assert.IsType(t, LocalVerifier{}, v)

	_, err = NewVerifier("google", "")
	assert.Error(t, err, "google needs a client id")

	v, err = NewVerifier("google", "client-id")
	require.NoError(t, err)
	assert.IsType(t, &GoogleVerifier{}, v)

	_, err = NewVerifier("saml", "")
	assert.Error(t, err)
}
