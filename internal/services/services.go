package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campuscast-api/internal/domain/event"
	"github.com/gravadigital/campuscast-api/internal/domain/identity"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/validation"
)

var (
	ErrUnauthenticated = errors.New("sign in required")
	ErrEventNotFound   = errors.New("event not found")
	ErrNotOwner        = errors.New("only the creator can change this event")
	ErrOptionNotFound  = errors.New("option not found")
	ErrOwnEvent        = errors.New("you cannot vote on your own event")
	ErrAlreadyVoted    = errors.New("you have already voted")
	ErrInvalidFilter   = errors.New("filter must be all or mine")
	ErrNotApplied      = errors.New("change was not applied")
)

// EventStore is the part of event.Store the services use
type EventStore interface {
	CreateEvent(ctx context.Context, title, description string, optionLabels []string) (event.Event, bool)
	UpdateEvent(ctx context.Context, id, title, description string, optionLabels []string) bool
	DeleteEvent(ctx context.Context, id string) bool
	Vote(ctx context.Context, eventID, optionID string) bool
	Event(id string) (event.Event, bool)
	List(filter event.Filter) event.Collection
	Subscribe(fn func(event.Collection)) (unsubscribe func())
}

// EventView is an event as seen by the current identity
type EventView struct {
	event.Event
	IsOwner    bool   `json:"is_owner"`
	HasVoted   bool   `json:"has_voted"`
	MyVote     string `json:"my_vote,omitempty"`
	TotalVotes int    `json:"total_votes"`
}

// EventForm is the payload of the create and edit forms
type EventForm struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
}

// EventService applies the rules the event forms and buttons enforce
type EventService struct {
	store      EventStore
	identities event.IdentitySource
	validator  validation.EventValidation
	log        *log.Logger
}

// NewEventService creates an event service over store
func NewEventService(store EventStore, identities event.IdentitySource) *EventService {
	return &EventService{
		store:      store,
		identities: identities,
		validator:  validation.EventValidation{},
		log:        logger.Service("events"),
	}
}

// View decorates e with the flags of the current identity
func (s *EventService) View(e event.Event) EventView {
	v := EventView{Event: e}
	for _, o := range e.Options {
		v.TotalVotes += o.Votes
	}

	id := s.identities.CurrentIdentity()
	if id == nil {
		return v
	}
	v.IsOwner = e.IsOwner(id.Email)
	v.HasVoted = e.HasVoted(id.Email)
	v.MyVote = e.VotesBy[id.Email]
	return v
}

// Views decorates a whole collection
func (s *EventService) Views(events event.Collection) []EventView {
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, s.View(e))
	}
	return out
}

// ListEvents returns the events under filter, newest first
func (s *EventService) ListEvents(filter string) ([]EventView, error) {
	f, ok := event.FilterFromString(strings.ToLower(strings.TrimSpace(filter)))
	if !ok {
		return nil, ErrInvalidFilter
	}
	return s.Views(s.store.List(f)), nil
}

// GetEvent returns one event
func (s *EventService) GetEvent(id string) (EventView, error) {
	e, ok := s.store.Event(id)
	if !ok {
		return EventView{}, ErrEventNotFound
	}
	return s.View(e), nil
}

// CreateEvent validates the form and creates an event owned by the current identity
func (s *EventService) CreateEvent(ctx context.Context, form EventForm) (EventView, error) {
	if s.identities.CurrentIdentity() == nil {
		return EventView{}, ErrUnauthenticated
	}
	if err := s.validator.Validate(form.Title, form.Description, form.Options); err != nil {
		return EventView{}, err
	}

	created, ok := s.store.CreateEvent(ctx, form.Title, form.Description, form.Options)
	if !ok {
		return EventView{}, ErrNotApplied
	}
	return s.View(created), nil
}

// UpdateEvent edits an event the current identity owns
func (s *EventService) UpdateEvent(ctx context.Context, id string, form EventForm) (EventView, error) {
	if _, err := s.ownedEvent(id); err != nil {
		return EventView{}, err
	}
	if err := s.validator.Validate(form.Title, form.Description, form.Options); err != nil {
		return EventView{}, err
	}

	if !s.store.UpdateEvent(ctx, id, form.Title, form.Description, form.Options) {
		return EventView{}, ErrNotApplied
	}
	return s.GetEvent(id)
}

// DeleteEvent removes an event the current identity owns
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.ownedEvent(id); err != nil {
		return err
	}
	if !s.store.DeleteEvent(ctx, id) {
		return ErrEventNotFound
	}
	return nil
}

// Vote casts the current identity's ballot. Unlike the store it rejects option ids
// that are not part of the event.
func (s *EventService) Vote(ctx context.Context, eventID, optionID string) (EventView, error) {
	id := s.identities.CurrentIdentity()
	if id == nil {
		return EventView{}, ErrUnauthenticated
	}

	e, ok := s.store.Event(eventID)
	if !ok {
		return EventView{}, ErrEventNotFound
	}
	switch {
	case e.IsOwner(id.Email):
		return EventView{}, ErrOwnEvent
	case e.HasVoted(id.Email):
		return EventView{}, ErrAlreadyVoted
	case !e.HasOption(optionID):
		return EventView{}, ErrOptionNotFound
	}

	if !s.store.Vote(ctx, eventID, optionID) {
		// Lost a race with another ballot or a delete.
		if _, still := s.store.Event(eventID); !still {
			return EventView{}, ErrEventNotFound
		}
		return EventView{}, ErrAlreadyVoted
	}
	return s.GetEvent(eventID)
}

// Results returns the aggregated ballots of an event
func (s *EventService) Results(id string) (event.Results, error) {
	e, ok := s.store.Event(id)
	if !ok {
		return event.Results{}, ErrEventNotFound
	}
	return e.Results(), nil
}

// Subscribe forwards every committed collection, decorated for the current identity
func (s *EventService) Subscribe(fn func([]EventView)) (unsubscribe func()) {
	return s.store.Subscribe(func(events event.Collection) {
		fn(s.Views(events))
	})
}

func (s *EventService) ownedEvent(id string) (event.Event, error) {
	who := s.identities.CurrentIdentity()
	if who == nil {
		return event.Event{}, ErrUnauthenticated
	}

	e, ok := s.store.Event(id)
	if !ok {
		return event.Event{}, ErrEventNotFound
	}
	if !e.IsOwner(who.Email) {
		s.log.Warn("Rejected change by non-owner", "event_id", id, "email", who.Email)
		return event.Event{}, fmt.Errorf("%w: %s", ErrNotOwner, id)
	}
	return e, nil
}

// SessionGate is the part of identity.Gate the session service uses
type SessionGate interface {
	CurrentIdentity() *identity.Identity
	IsAllowedDomain() bool
	Domain() string
	SignIn(ctx context.Context, credential string) error
	SignOut(ctx context.Context) error
	UpdateProfile(patch identity.ProfilePatch) bool
}

// SessionView is the session as returned to the client
type SessionView struct {
	Identity        *identity.Identity `json:"identity"`
	IsAllowedDomain bool               `json:"is_allowed_domain"`
	Domain          string             `json:"domain"`
}

// UserService manages the signed-in identity
type UserService struct {
	gate      SessionGate
	validator validation.UserValidation
}

// NewUserService creates a user service over gate
func NewUserService(gate SessionGate) *UserService {
	return &UserService{
		gate:      gate,
		validator: validation.UserValidation{},
	}
}

// Session returns the current identity and whether it may act
func (s *UserService) Session() SessionView {
	return SessionView{
		Identity:        s.gate.CurrentIdentity(),
		IsAllowedDomain: s.gate.IsAllowedDomain(),
		Domain:          s.gate.Domain(),
	}
}

// SignIn passes credential to the gate
func (s *UserService) SignIn(ctx context.Context, credential string) (SessionView, error) {
	if err := validation.ValidateRequired(credential, "credential"); err != nil {
		return SessionView{}, validation.FieldErrors{"credential": err.Error()}
	}
	if err := s.gate.SignIn(ctx, credential); err != nil {
		return SessionView{}, err
	}
	return s.Session(), nil
}

// SignOut ends the session
func (s *UserService) SignOut(ctx context.Context) error {
	return s.gate.SignOut(ctx)
}

// UpdateName changes the display name of the current identity
func (s *UserService) UpdateName(name string) (SessionView, error) {
	if s.gate.CurrentIdentity() == nil {
		return SessionView{}, ErrUnauthenticated
	}
	if err := s.validator.ValidateUserName(name); err != nil {
		return SessionView{}, validation.FieldErrors{"name": err.Error()}
	}
	s.gate.UpdateProfile(identity.ProfilePatch{Name: &name})
	return s.Session(), nil
}
