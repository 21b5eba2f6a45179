package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/air-quality-forecast/internal/features"
)

// RecordVersion is written into every persisted state record.
const RecordVersion = 1

var (
	// ErrNotFound is returned by a Backend when no record exists for a key.
	ErrNotFound = errors.New("no state for key")
)

// CorruptStateError reports a stored record that could not be decoded.
type CorruptStateError struct {
	Key string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state for key %s: %v", e.Key, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// EntityState is the persisted rolling window and feedback values for one entity.
type EntityState struct {
	Version        int                `json:"version"`
	EntityID       string             `json:"entity_id,omitempty"`
	Buffer         []features.Row     `json:"buffer"`
	LastPollutants map[string]float64 `json:"last_pollutants"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Backend stores opaque records by key. Put must replace a record atomically.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Store maps entity ids to storage keys and owns the record format.
type Store struct {
	backend Backend
	keyFn   KeyFunc
	now     func() time.Time
}

// New creates a Store over backend. With hashKeys the storage key carries a digest of the
// raw entity id so ids that sanitize identically do not share state.
func New(backend Backend, hashKeys bool) *Store {
	keyFn := SanitizeKey
	if hashKeys {
		keyFn = HashedKey
	}
	return &Store{
		backend: backend,
		keyFn:   keyFn,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Key returns the storage key used for entityID.
func (s *Store) Key(entityID string) string {
	return s.keyFn(entityID)
}

// Load returns the stored state, nil when none exists, or a *CorruptStateError.
func (s *Store) Load(ctx context.Context, entityID string) (*EntityState, error) {
	key := s.Key(entityID)
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", key, err)
	}

	var st EntityState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, &CorruptStateError{Key: key, Err: err}
	}
	if st.EntityID != "" && st.EntityID != entityID {
		log.Printf("WARN: store: key %s is shared by %q and %q", key, st.EntityID, entityID)
	}
	if st.LastPollutants == nil {
		st.LastPollutants = features.ZeroPollutants()
	}
	return &st, nil
}

// Save persists st for entityID, replacing any previous record.
func (s *Store) Save(ctx context.Context, entityID string, st *EntityState) error {
	st.Version = RecordVersion
	st.EntityID = entityID
	st.UpdatedAt = s.now()

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	key := s.Key(entityID)
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save state %s: %w", key, err)
	}
	return nil
}

// Init persists a cold-start state: seed replicated Lookback times, zeroed pollutants.
func (s *Store) Init(ctx context.Context, entityID string, seed features.Row) (*EntityState, error) {
	buf := make([]features.Row, features.Lookback)
	for i := range buf {
		buf[i] = seed.Clone()
	}
	st := &EntityState{
		Buffer:         buf,
		LastPollutants: features.ZeroPollutants(),
	}
	if err := s.Save(ctx, entityID, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
