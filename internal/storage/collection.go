package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campuscast-api/internal/domain/event"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/storage/kv"
)

// DefaultCollectionKey is the key the event collection is stored under
const DefaultCollectionKey = "campuscast_shared_events"

// CollectionRepository implements event.Repository on top of a kv.Store, writing
// the whole collection as one JSON value.
type CollectionRepository struct {
	store kv.Store
	key   string
	log   *log.Logger
}

// NewCollectionRepository creates a repository storing the collection under key
func NewCollectionRepository(store kv.Store, key string) *CollectionRepository {
	if key == "" {
		key = DefaultCollectionKey
	}
	return &CollectionRepository{
		store: store,
		key:   key,
		log:   logger.Repository("collection"),
	}
}

// Load reads the stored collection. It returns nil, nil when nothing is stored.
func (r *CollectionRepository) Load(ctx context.Context) (event.Collection, error) {
	data, err := r.store.Get(ctx, r.key)
	if errors.Is(err, kv.ErrNotFound) {
		r.log.Debug("No stored collection", "key", r.key)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.key, err)
	}

	events, err := DecodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.key, err)
	}

	r.log.Debug("Collection loaded", "key", r.key, "events", len(events))
	return events, nil
}

// Save overwrites the stored collection
func (r *CollectionRepository) Save(ctx context.Context, events event.Collection) error {
	data, err := EncodeCollection(events)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	if err := r.store.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.key, err)
	}

	r.log.Debug("Collection saved", "key", r.key, "events", len(events), "bytes", len(data))
	return nil
}

// EncodeCollection serializes events in the stored record format
func EncodeCollection(events event.Collection) ([]byte, error) {
	if events == nil {
		events = event.Collection{}
	}
	out := make(event.Collection, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return json.Marshal(out)
}

// DecodeCollection parses the stored record format. Records that are not an array
// of events, or events without an id, are rejected.
func DecodeCollection(data []byte) (event.Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return event.Collection{}, nil
	}

	var events event.Collection
	if err := json.Unmarshal(trimmed, &events); err != nil {
		return nil, err
	}

	for i := range events {
		if events[i].ID == "" {
			return nil, fmt.Errorf("event %d has no id", i)
		}
		events[i] = events[i].Clone()
	}
	return events, nil
}
