package event

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event represents a poll created by a campus user
type Event struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Options     []Option          `json:"options"`
	CreatedAt   time.Time         `json:"createdAt"`
	CreatedBy   Creator           `json:"createdBy"`
	VotesBy     map[string]string `json:"votesBy"` // voter email -> option id
}

// Option is one selectable choice of an event. Votes is derived from the
// event's VotesBy mapping.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// Creator is the snapshot of the identity that created an event
type Creator struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Collection is the ordered, newest-first list of events
type Collection []Event

// NewID generates a unique identifier for events and options
func NewID() string {
	return uuid.NewString()
}

// NewEvent creates a new event with the given parameters
func NewEvent(title, description string, labels []string, creator Creator, createdAt time.Time) Event {
	options := make([]Option, 0, len(labels))
	for _, label := range labels {
		options = append(options, Option{ID: NewID(), Label: label})
	}

	return Event{
		ID:          NewID(),
		Title:       title,
		Description: description,
		Options:     options,
		CreatedAt:   createdAt,
		CreatedBy:   creator,
		VotesBy:     make(map[string]string),
	}
}

// IsOwner checks if the given email created this event
func (e *Event) IsOwner(email string) bool {
	return email != "" && e.CreatedBy.Email == email
}

// HasVoted checks if the given email already has a ballot on this event
func (e *Event) HasVoted(email string) bool {
	_, ok := e.VotesBy[email]
	return ok
}

// HasOption checks if optionID belongs to the current option list
func (e *Event) HasOption(optionID string) bool {
	return slices.ContainsFunc(e.Options, func(o Option) bool { return o.ID == optionID })
}

// Clone returns a deep copy of the event
func (e Event) Clone() Event {
	e.Options = slices.Clone(e.Options)
	if e.Options == nil {
		e.Options = []Option{}
	}
	if e.VotesBy == nil {
		e.VotesBy = make(map[string]string)
	} else {
		e.VotesBy = maps.Clone(e.VotesBy)
	}
	return e
}

// Validate checks if the event data is valid
func (e *Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title is required")
	}
	for i, o := range e.Options {
		if o.ID == "" {
			return fmt.Errorf("option %d: id is required", i)
		}
		if strings.TrimSpace(o.Label) == "" {
			return fmt.Errorf("option %d: label is required", i)
		}
	}
	if e.HasVoted(e.CreatedBy.Email) {
		return fmt.Errorf("creator %s cannot hold a vote", e.CreatedBy.Email)
	}
	return nil
}

// Tally counts ballots per option id, including ids no longer in Options
func (e *Event) Tally() map[string]int {
	tally := make(map[string]int, len(e.Options))
	for _, optionID := range e.VotesBy {
		tally[optionID]++
	}
	return tally
}

// Results is the aggregated view of an event's ballots
type Results struct {
	EventID        string         `json:"event_id"`
	Title          string         `json:"title"`
	Options        []OptionResult `json:"options"`
	TotalVotes     int            `json:"total_votes"`
	UnmatchedVotes int            `json:"unmatched_votes"`
}

// OptionResult is one bar of the results chart
type OptionResult struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
	Votes    int    `json:"votes"`
}

// Results aggregates the option counts. Ballots that point at an option no longer
// present are reported as UnmatchedVotes.
func (e *Event) Results() Results {
	res := Results{
		EventID: e.ID,
		Title:   e.Title,
		Options: make([]OptionResult, 0, len(e.Options)),
	}

	matched := 0
	tally := e.Tally()
	for _, o := range e.Options {
		res.Options = append(res.Options, OptionResult{OptionID: o.ID, Label: o.Label, Votes: o.Votes})
		res.TotalVotes += o.Votes
		matched += tally[o.ID]
	}
	res.UnmatchedVotes = len(e.VotesBy) - matched

	return res
}

// Filter selects which events a listing shows
type Filter string

const (
	FilterAll  Filter = "all"
	FilterMine Filter = "mine"
)

// FilterFromString converts a string to a Filter
func FilterFromString(s string) (Filter, bool) {
	switch s {
	case "", "all":
		return FilterAll, true
	case "mine":
		return FilterMine, true
	default:
		return FilterAll, false
	}
}

// Clone returns a deep copy of the collection
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, e := range c {
		out[i] = e.Clone()
	}
	return out
}

// Index returns the position of the event with id, or -1
func (c Collection) Index(id string) int {
	return slices.IndexFunc(c, func(e Event) bool { return e.ID == id })
}

// CreatedBy returns the events whose creator email equals email
func (c Collection) CreatedBy(email string) Collection {
	out := make(Collection, 0)
	for _, e := range c {
		if e.IsOwner(email) {
			out = append(out, e.Clone())
		}
	}
	return out
}
