package event

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campuscast-api/internal/logger"
)

// Store owns the event collection. Every operation is a full read-modify-write of
// the collection followed by a save of the whole collection; invalid requests are
// silent no-ops.
type Store struct {
	identities IdentitySource
	repo       Repository
	log        *log.Logger
	now        func() time.Time

	mu     sync.Mutex
	events Collection

	subMu       sync.Mutex
	subscribers map[int]func(Collection)
	nextSub     int

	// Delivery state, guarded by subMu. seq counts commits; delivered is the
	// seq of the last snapshot handed to subscribers.
	latest     Collection
	seq        uint64
	delivered  uint64
	delivering bool
}

// NewStore creates a store seeded from repo. Missing or unreadable data starts an
// empty collection.
func NewStore(ctx context.Context, identities IdentitySource, repo Repository) *Store {
	s := &Store{
		identities:  identities,
		repo:        repo,
		log:         logger.Service("event_store"),
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		subscribers: make(map[int]func(Collection)),
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		s.log.Warn("Failed to load events, starting empty", "error", err)
		loaded = nil
	}

	s.events = make(Collection, 0, len(loaded))
	for _, e := range loaded {
		s.events = append(s.events, e.Clone())
	}
	s.log.Info("Event store ready", "events", len(s.events))

	return s
}

// CreateEvent prepends a new event owned by the current identity
func (s *Store) CreateEvent(ctx context.Context, title, description string, optionLabels []string) (Event, bool) {
	id := s.identities.CurrentIdentity()
	if id == nil {
		s.log.Debug("Create ignored: no identity")
		return Event{}, false
	}

	title = strings.TrimSpace(title)
	if title == "" {
		s.log.Debug("Create ignored: empty title", "email", id.Email)
		return Event{}, false
	}

	ev := NewEvent(
		title,
		strings.TrimSpace(description),
		normalizeLabels(optionLabels),
		Creator{Name: id.Name, Email: id.Email, Image: id.Image},
		s.now(),
	)

	s.mu.Lock()
	next := make(Collection, 0, len(s.events)+1)
	next = append(next, ev)
	next = append(next, s.events...)
	s.commit(ctx, next)
	s.mu.Unlock()

	s.log.Info("Event created", "event_id", ev.ID, "email", id.Email, "options", len(ev.Options))
	s.publish()
	return ev.Clone(), true
}

// UpdateEvent replaces title, description and labels. Options are matched by
// position: position i keeps the old option's id and votes, extra positions get
// fresh options and trailing old options are dropped.
func (s *Store) UpdateEvent(ctx context.Context, id, title, description string, optionLabels []string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		s.log.Debug("Update ignored: empty title", "event_id", id)
		return false
	}
	labels := normalizeLabels(optionLabels)

	s.mu.Lock()
	idx := s.events.Index(id)
	if idx < 0 {
		s.mu.Unlock()
		s.log.Debug("Update ignored: unknown event", "event_id", id)
		return false
	}

	updated := s.events[idx].Clone()
	updated.Title = title
	updated.Description = strings.TrimSpace(description)

	previous := updated.Options
	options := make([]Option, 0, len(labels))
	for i, label := range labels {
		if i < len(previous) {
			options = append(options, Option{ID: previous[i].ID, Label: label, Votes: previous[i].Votes})
			continue
		}
		options = append(options, Option{ID: NewID(), Label: label})
	}
	updated.Options = options

	next := s.events.replace(idx, updated)
	s.commit(ctx, next)
	s.mu.Unlock()

	s.log.Info("Event updated", "event_id", id, "options", len(options))
	s.publish()
	return true
}

// DeleteEvent removes the event with id, if present
func (s *Store) DeleteEvent(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := s.events.Index(id)
	if idx < 0 {
		s.mu.Unlock()
		s.log.Debug("Delete ignored: unknown event", "event_id", id)
		return false
	}

	next := make(Collection, 0, len(s.events)-1)
	next = append(next, s.events[:idx]...)
	next = append(next, s.events[idx+1:]...)
	s.commit(ctx, next)
	s.mu.Unlock()

	s.log.Info("Event deleted", "event_id", id)
	s.publish()
	return true
}

// Vote records the current identity's ballot. Owners cannot vote on their own
// events and the first ballot is final. optionID is not checked against the
// event's options: an unknown id records the ballot without counting it.
func (s *Store) Vote(ctx context.Context, eventID, optionID string) bool {
	id := s.identities.CurrentIdentity()
	if id == nil {
		s.log.Debug("Vote ignored: no identity", "event_id", eventID)
		return false
	}

	s.mu.Lock()
	idx := s.events.Index(eventID)
	if idx < 0 {
		s.mu.Unlock()
		s.log.Debug("Vote ignored: unknown event", "event_id", eventID)
		return false
	}

	current := &s.events[idx]
	if current.IsOwner(id.Email) {
		s.mu.Unlock()
		s.log.Debug("Vote ignored: owner", "event_id", eventID, "email", id.Email)
		return false
	}
	if current.HasVoted(id.Email) {
		s.mu.Unlock()
		s.log.Debug("Vote ignored: already voted", "event_id", eventID, "email", id.Email)
		return false
	}

	updated := current.Clone()
	updated.VotesBy[id.Email] = optionID
	for i := range updated.Options {
		if updated.Options[i].ID == optionID {
			updated.Options[i].Votes++
		}
	}

	next := s.events.replace(idx, updated)
	s.commit(ctx, next)
	s.mu.Unlock()

	s.log.Info("Vote recorded", "event_id", eventID, "option_id", optionID, "email", id.Email)
	s.publish()
	return true
}

// Events returns a copy of the whole collection, newest first
func (s *Store) Events() Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Clone()
}

// Event returns a copy of the event with id
func (s *Store) Event(id string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.events.Index(id)
	if idx < 0 {
		return Event{}, false
	}
	return s.events[idx].Clone(), true
}

// Results returns the aggregated ballots of the event with id
func (s *Store) Results(id string) (Results, bool) {
	ev, ok := s.Event(id)
	if !ok {
		return Results{}, false
	}
	return ev.Results(), true
}

// List returns the events visible under filter for the current identity
func (s *Store) List(filter Filter) Collection {
	events := s.Events()
	if filter != FilterMine {
		return events
	}

	id := s.identities.CurrentIdentity()
	if id == nil {
		return Collection{}
	}
	return events.CreatedBy(id.Email)
}

// Subscribe registers fn to receive the collection after every committed change
func (s *Store) Subscribe(fn func(Collection)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// commit swaps in next, saves it and queues it for subscribers. Must be called
// with s.mu held. A failed save keeps the in-memory collection authoritative.
func (s *Store) commit(ctx context.Context, next Collection) {
	s.events = next

	if err := s.repo.Save(ctx, next); err != nil {
		s.log.Error("Failed to persist events", "error", err, "events", len(next))
	}

	s.subMu.Lock()
	s.seq++
	s.latest = next.Clone()
	s.subMu.Unlock()
}

// publish delivers the newest committed snapshot. Only one goroutine delivers at
// a time; commits made while it is busy are picked up by its loop, so subscribers
// never see an older snapshot after a newer one.
func (s *Store) publish() {
	s.subMu.Lock()
	if s.delivering {
		s.subMu.Unlock()
		return
	}
	s.delivering = true

	for s.delivered != s.seq {
		s.delivered = s.seq
		snapshot := s.latest
		fns := make([]func(Collection), 0, len(s.subscribers))
		for _, fn := range s.subscribers {
			fns = append(fns, fn)
		}
		s.subMu.Unlock()

		for _, fn := range fns {
			fn(snapshot.Clone())
		}

		s.subMu.Lock()
	}

	s.delivering = false
	s.subMu.Unlock()
}

// replace returns a new collection with the event at idx swapped for e
func (c Collection) replace(idx int, e Event) Collection {
	next := make(Collection, len(c))
	copy(next, c)
	next[idx] = e
	return next
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
