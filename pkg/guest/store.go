// Package guest is the client-side Session Store: the activity record a
// shopper builds before signing in, keyed by a session id that survives
// logins and logouts.
package guest

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
)

const (
	sessionIDKey      = "sessionId"
	sessionDataPrefix = "sessionData_"
	sessionIDSuffix   = 9
)

// Store reads and writes the guest session through a Backend.
type Store struct {
	backend Backend
	now     func() time.Time
	newRand func() string

	mu sync.Mutex
	id string
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, now: time.Now, newRand: randomSuffix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionID returns the persisted session id, generating and saving one on
// first use. The id never changes afterwards.
func (s *Store) SessionID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionIDLocked()
}

func (s *Store) sessionIDLocked() (string, error) {
	if s.id != "" {
		return s.id, nil
	}
	raw, err := s.backend.Load(sessionIDKey)
	switch {
	case err == nil && strings.TrimSpace(string(raw)) != "":
		var id string
		if json.Unmarshal(raw, &id) == nil && id != "" {
			s.id = id
			return id, nil
		}
	case err != nil && !errors.Is(err, ErrNotFound):
		return "", fmt.Errorf("load session id: %w", err)
	}

	id := fmt.Sprintf("session_%d_%s", s.now().UnixMilli(), s.newRand())
	encoded, _ := json.Marshal(id)
	if err := s.backend.Save(sessionIDKey, encoded); err != nil {
		return "", fmt.Errorf("save session id: %w", err)
	}
	s.id = id
	return id, nil
}

// Load returns the current session record. A missing or unreadable document
// yields an empty record.
func (s *Store) Load() (activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (activity.Record, error) {
	id, err := s.sessionIDLocked()
	if err != nil {
		return activity.Record{}, err
	}
	raw, err := s.backend.Load(sessionDataPrefix + id)
	if errors.Is(err, ErrNotFound) {
		return activity.Empty(s.now()), nil
	}
	if err != nil {
		return activity.Record{}, fmt.Errorf("load session data: %w", err)
	}
	var rec activity.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return activity.Empty(s.now()), nil
	}
	rec.Normalize()
	return rec, nil
}

// Save replaces the stored session record.
func (s *Store) Save(rec activity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(rec)
}

func (s *Store) saveLocked(rec activity.Record) error {
	id, err := s.sessionIDLocked()
	if err != nil {
		return err
	}
	rec.Normalize()
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session data: %w", err)
	}
	if err := s.backend.Save(sessionDataPrefix+id, raw); err != nil {
		return fmt.Errorf("save session data: %w", err)
	}
	return nil
}

// Update loads the record, applies fn and saves the result. Nothing is saved
// when fn returns an error.
func (s *Store) Update(fn func(rec *activity.Record, now time.Time) error) (activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.loadLocked()
	if err != nil {
		return activity.Record{}, err
	}
	if err := fn(&rec, s.now()); err != nil {
		return activity.Record{}, err
	}
	if err := s.saveLocked(rec); err != nil {
		return activity.Record{}, err
	}
	return rec, nil
}

// Reset empties the session record after a merge or logout. The session id
// is kept.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(activity.Empty(s.now()))
}

// GetJSON decodes the document stored under key into dst. It returns
// ErrNotFound when the key is absent.
func (s *Store) GetJSON(key string, dst any) error {
	raw, err := s.backend.Load(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetJSON(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.backend.Save(key, raw)
}

func (s *Store) Delete(key string) error {
	return s.backend.Delete(key)
}

// randomSuffix returns sessionIDSuffix lowercase base36 characters drawn from
// a random uuid.
func randomSuffix() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8])
	out := strconv.FormatUint(n, 36)
	for len(out) < sessionIDSuffix {
		out = "0" + out
	}
	return out[:sessionIDSuffix]
}
