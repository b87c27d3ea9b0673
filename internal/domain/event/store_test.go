package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
)

type memRepo struct {
	mu      sync.Mutex
	stored  Collection
	saves   int
	loadErr error
	saveErr error
}

func (r *memRepo) Load(context.Context) (Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.stored.Clone(), nil
}

func (r *memRepo) Save(_ context.Context, events Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.stored = events.Clone()
	return nil
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type actingAs struct {
	mu sync.Mutex
	id *identity.Identity
}

func (a *actingAs) CurrentIdentity() *identity.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.id == nil {
		return nil
	}
	cp := *a.id
	return &cp
}

func (a *actingAs) switchTo(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if email == "" {
		a.id = nil
		return
	}
	a.id = &identity.Identity{Name: email, Email: email, Image: identity.PlaceholderImage}
}

func newTestStore(t *testing.T, email string) (*Store, *actingAs, *memRepo) {
	t.Helper()
	who := &actingAs{}
	who.switchTo(email)
	repo := &memRepo{}
	return NewStore(context.Background(), who, repo), who, repo
}

// assertDerivedCounts checks that every option's votes equal the ballots pointing at it.
func assertDerivedCounts(t *testing.T, events Collection) {
	t.Helper()
	for _, e := range events {
		tally := e.Tally()
		for _, o := range e.Options {
			assert.Equal(t, tally[o.ID], o.Votes, "event %s option %s", e.ID, o.Label)
		}
	}
}

func TestNewStore_StartsEmptyWithoutData(t *testing.T) {
	store := NewStore(context.Background(), &actingAs{}, &memRepo{})
	assert.Empty(t, store.Events())
}

func TestNewStore_StartsEmptyOnLoadFailure(t *testing.T) {
	repo := &memRepo{loadErr: errors.New("invalid character 'x' looking for beginning of value")}
	store := NewStore(context.Background(), &actingAs{}, repo)
	assert.Empty(t, store.Events())
}

func TestNewStore_RestoresPersistedCollection(t *testing.T) {
	store, _, repo := newTestStore(t, "a@org.edu")
	_, ok := store.CreateEvent(context.Background(), "Lunch", "", []string{"Pizza", "Salad"})
	require.True(t, ok)

	restored := NewStore(context.Background(), &actingAs{}, repo)
	assert.Equal(t, store.Events(), restored.Events())
}

func TestCreateEvent(t *testing.T) {
	store, _, repo := newTestStore(t, "a@org.edu")

	ev, ok := store.CreateEvent(context.Background(), "  Lunch  ", "  where to eat ", []string{" Pizza ", "", "   ", "Salad"})
	require.True(t, ok)

	assert.Equal(t, "Lunch", ev.Title)
	assert.Equal(t, "where to eat", ev.Description)
	require.Len(t, ev.Options, 2)
	assert.Equal(t, "Pizza", ev.Options[0].Label)
	assert.Equal(t, "Salad", ev.Options[1].Label)
	assert.NotEqual(t, ev.Options[0].ID, ev.Options[1].ID)
	assert.Zero(t, ev.Options[0].Votes)
	assert.Equal(t, Creator{Name: "a@org.edu", Email: "a@org.edu", Image: identity.PlaceholderImage}, ev.CreatedBy)
	assert.Empty(t, ev.VotesBy)
	assert.False(t, ev.CreatedAt.IsZero())

	assert.Equal(t, 1, repo.saveCount())
	assert.Equal(t, store.Events(), repo.stored)
}

func TestCreateEvent_PrependsNewest(t *testing.T) {
	store, _, _ := newTestStore(t, "a@org.edu")
	first, _ := store.CreateEvent(context.Background(), "First", "", []string{"x", "y"})
	second, _ := store.CreateEvent(context.Background(), "Second", "", []string{"x", "y"})

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, second.ID, events[0].ID)
	assert.Equal(t, first.ID, events[1].ID)
}

func TestCreateEvent_WithoutIdentityIsNoop(t *testing.T) {
	store, _, repo := newTestStore(t, "")

	_, ok := store.CreateEvent(context.Background(), "Lunch", "", []string{"Pizza", "Salad"})
	assert.False(t, ok)
	assert.Empty(t, store.Events())
	assert.Zero(t, repo.saveCount())
}

func TestCreateEvent_BlankTitleIsNoop(t *testing.T) {
	store, _, repo := newTestStore(t, "a@org.edu")

	_, ok := store.CreateEvent(context.Background(), "   ", "", []string{"Pizza", "Salad"})
	assert.False(t, ok)
	assert.Empty(t, store.Events())
	assert.Zero(t, repo.saveCount())
}

func TestCreatorSnapshotIsNotLive(t *testing.T) {
	store, who, _ := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(context.Background(), "Lunch", "", []string{"Pizza", "Salad"})

	who.mu.Lock()
	who.id.Name = "Renamed"
	who.mu.Unlock()

	got, ok := store.Event(ev.ID)
	require.True(t, ok)
	assert.Equal(t, "a@org.edu", got.CreatedBy.Name)
}

func TestLunchScenario(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "a@org.edu")

	ev, ok := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})
	require.True(t, ok)
	pizza, salad := ev.Options[0].ID, ev.Options[1].ID

	who.switchTo("b@org.edu")
	assert.True(t, store.Vote(ctx, ev.ID, pizza))

	got, _ := store.Event(ev.ID)
	assert.Equal(t, 1, got.Options[0].Votes)
	assert.Equal(t, 0, got.Options[1].Votes)
	assert.Equal(t, map[string]string{"b@org.edu": pizza}, got.VotesBy)

	assert.False(t, store.Vote(ctx, ev.ID, salad))

	got, _ = store.Event(ev.ID)
	assert.Equal(t, 1, got.Options[0].Votes)
	assert.Equal(t, 0, got.Options[1].Votes)
	assert.Len(t, got.VotesBy, 1)
}

func TestVote_OwnerCannotVote(t *testing.T) {
	ctx := context.Background()
	store, _, repo := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})
	before := store.Events()
	saves := repo.saveCount()

	assert.False(t, store.Vote(ctx, ev.ID, ev.Options[0].ID))
	assert.Equal(t, before, store.Events())
	assert.Equal(t, saves, repo.saveCount())
}

func TestVote_Noops(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})
	before := store.Events()

	who.switchTo("")
	assert.False(t, store.Vote(ctx, ev.ID, ev.Options[0].ID), "no identity")

	who.switchTo("b@org.edu")
	assert.False(t, store.Vote(ctx, "missing", ev.Options[0].ID), "unknown event")

	assert.Equal(t, before, store.Events())
}

func TestVote_UnknownOptionRecordsBallotOnly(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})

	who.switchTo("b@org.edu")
	assert.True(t, store.Vote(ctx, ev.ID, "not-an-option"))

	got, _ := store.Event(ev.ID)
	assert.Equal(t, "not-an-option", got.VotesBy["b@org.edu"])
	for _, o := range got.Options {
		assert.Zero(t, o.Votes)
	}

	res, ok := store.Results(ev.ID)
	require.True(t, ok)
	assert.Equal(t, 0, res.TotalVotes)
	assert.Equal(t, 1, res.UnmatchedVotes)
}

func TestVote_NoDuplicateBallotsAcrossSequences(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "owner@org.edu")
	ev, _ := store.CreateEvent(ctx, "Colors", "", []string{"Red", "Green", "Blue"})

	voters := []string{"v1@org.edu", "v2@org.edu", "v3@org.edu", "owner@org.edu"}
	for round := 0; round < 3; round++ {
		for i, voter := range voters {
			who.switchTo(voter)
			store.Vote(ctx, ev.ID, ev.Options[(i+round)%len(ev.Options)].ID)
			assertDerivedCounts(t, store.Events())
		}
	}

	got, _ := store.Event(ev.ID)
	assert.Len(t, got.VotesBy, 3)
	assert.NotContains(t, got.VotesBy, "owner@org.edu")

	total := 0
	for _, o := range got.Options {
		total += o.Votes
	}
	assert.Equal(t, 3, total)
	assert.NoError(t, got.Validate())
}

func TestVote_ConcurrentDuplicateBallots(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "owner@org.edu")
	ev, _ := store.CreateEvent(ctx, "Colors", "", []string{"Red", "Green"})
	who.switchTo("v@org.edu")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if store.Vote(ctx, ev.ID, ev.Options[i%2].ID) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	got, _ := store.Event(ev.ID)
	assert.Len(t, got.VotesBy, 1)
	assertDerivedCounts(t, store.Events())
}

func TestUpdateEvent_PositionalOptions(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad", "Soup"})

	who.switchTo("b@org.edu")
	store.Vote(ctx, ev.ID, ev.Options[0].ID)
	who.switchTo("c@org.edu")
	store.Vote(ctx, ev.ID, ev.Options[1].ID)
	who.switchTo("d@org.edu")
	store.Vote(ctx, ev.ID, ev.Options[2].ID)

	t.Run("grow", func(t *testing.T) {
		require.True(t, store.UpdateEvent(ctx, ev.ID, " Dinner ", " late ", []string{"Pasta", "Salad", "Soup", "Tacos"}))

		got, _ := store.Event(ev.ID)
		assert.Equal(t, "Dinner", got.Title)
		assert.Equal(t, "late", got.Description)
		require.Len(t, got.Options, 4)
		assert.Equal(t, ev.Options[0].ID, got.Options[0].ID)
		assert.Equal(t, "Pasta", got.Options[0].Label)
		assert.Equal(t, 1, got.Options[0].Votes)
		assert.Equal(t, "Tacos", got.Options[3].Label)
		assert.Zero(t, got.Options[3].Votes)
		assert.NotContains(t, []string{ev.Options[0].ID, ev.Options[1].ID, ev.Options[2].ID}, got.Options[3].ID)
		assert.Equal(t, ev.CreatedAt, got.CreatedAt)
		assert.Equal(t, ev.CreatedBy, got.CreatedBy)
	})

	t.Run("shrink keeps leading options", func(t *testing.T) {
		require.True(t, store.UpdateEvent(ctx, ev.ID, "Dinner", "", []string{"Pasta", "Greens"}))

		got, _ := store.Event(ev.ID)
		require.Len(t, got.Options, 2)
		assert.Equal(t, ev.Options[0].ID, got.Options[0].ID)
		assert.Equal(t, 1, got.Options[0].Votes)
		assert.Equal(t, ev.Options[1].ID, got.Options[1].ID)
		assert.Equal(t, "Greens", got.Options[1].Label)
		assert.Equal(t, 1, got.Options[1].Votes)

		// the ballot for the dropped option is kept as-is
		assert.Equal(t, ev.Options[2].ID, got.VotesBy["d@org.edu"])
		assertDerivedCounts(t, store.Events())

		res, _ := store.Results(ev.ID)
		assert.Equal(t, 2, res.TotalVotes)
		assert.Equal(t, 1, res.UnmatchedVotes)
	})
}

func TestUpdateEvent_Noops(t *testing.T) {
	ctx := context.Background()
	store, _, repo := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})
	before := store.Events()
	saves := repo.saveCount()

	assert.False(t, store.UpdateEvent(ctx, "missing", "Title", "", []string{"a", "b"}))
	assert.False(t, store.UpdateEvent(ctx, ev.ID, "  ", "", []string{"a", "b"}))

	assert.Equal(t, before, store.Events())
	assert.Equal(t, saves, repo.saveCount())
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	store, _, repo := newTestStore(t, "a@org.edu")
	first, _ := store.CreateEvent(ctx, "First", "", []string{"x", "y"})
	second, _ := store.CreateEvent(ctx, "Second", "", []string{"x", "y"})

	assert.True(t, store.DeleteEvent(ctx, first.ID))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, second.ID, events[0].ID)
	assert.Equal(t, events, repo.stored)
}

func TestDeleteEvent_UnknownIDLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	store, who, repo := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})
	who.switchTo("b@org.edu")
	store.Vote(ctx, ev.ID, ev.Options[1].ID)

	before := store.Events()
	saves := repo.saveCount()

	assert.False(t, store.DeleteEvent(ctx, "does-not-exist"))
	assert.Equal(t, before, store.Events())
	assert.Equal(t, saves, repo.saveCount())
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	ctx := context.Background()
	store, _, repo := newTestStore(t, "a@org.edu")
	repo.saveErr = errors.New("quota exceeded")

	ev, ok := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})
	require.True(t, ok)

	got, found := store.Event(ev.ID)
	require.True(t, found)
	assert.Equal(t, ev, got)
	assert.Empty(t, repo.stored)
}

func TestSnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t, "a@org.edu")
	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})

	events := store.Events()
	events[0].Title = "Hacked"
	events[0].Options[0].Votes = 99
	events[0].VotesBy["x@org.edu"] = "y"

	got, _ := store.Event(ev.ID)
	assert.Equal(t, "Lunch", got.Title)
	assert.Zero(t, got.Options[0].Votes)
	assert.Empty(t, got.VotesBy)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "a@org.edu")
	mine, _ := store.CreateEvent(ctx, "Mine", "", []string{"x", "y"})
	who.switchTo("b@org.edu")
	theirs, _ := store.CreateEvent(ctx, "Theirs", "", []string{"x", "y"})

	assert.Len(t, store.List(FilterAll), 2)

	own := store.List(FilterMine)
	require.Len(t, own, 1)
	assert.Equal(t, theirs.ID, own[0].ID)

	who.switchTo("a@org.edu")
	own = store.List(FilterMine)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	who.switchTo("")
	assert.Empty(t, store.List(FilterMine))
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	store, who, _ := newTestStore(t, "a@org.edu")

	var received []Collection
	unsubscribe := store.Subscribe(func(c Collection) { received = append(received, c) })

	ev, _ := store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})
	who.switchTo("b@org.edu")
	store.Vote(ctx, ev.ID, ev.Options[0].ID)
	store.Vote(ctx, ev.ID, ev.Options[0].ID) // duplicate, no notification

	require.Len(t, received, 2)
	assert.Equal(t, 1, received[1][0].Options[0].Votes)

	unsubscribe()
	store.DeleteEvent(ctx, ev.ID)
	assert.Len(t, received, 2)
}

func TestSubscribe_LastDeliveryIsNewest(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t, "a@org.edu")

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var sizes []int
	store.Subscribe(func(c Collection) {
		mu.Lock()
		sizes = append(sizes, len(c))
		first := len(sizes) == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.CreateEvent(ctx, "First", "", []string{"A", "B"})
	}()

	<-entered
	// Commits while another goroutine is delivering return without blocking.
	store.CreateEvent(ctx, "Second", "", []string{"A", "B"})
	close(release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, sizes)
	assert.Len(t, store.Events(), 2)
}

func TestSubscribe_MutationFromSubscriber(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t, "a@org.edu")

	var received []Collection
	store.Subscribe(func(c Collection) {
		received = append(received, c)
		if len(c) == 1 {
			store.CreateEvent(ctx, "Follow-up", "", []string{"A", "B"})
		}
	})

	store.CreateEvent(ctx, "Lunch", "", []string{"Pizza", "Salad"})

	require.Len(t, received, 2)
	assert.Len(t, received[1], 2)
	assert.Equal(t, "Follow-up", received[1][0].Title)
}
