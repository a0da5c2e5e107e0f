// Package session keeps step controller snapshots between HTTP requests.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 30 * time.Minute

// Record is what a session keeps between requests: the controller snapshot
// plus the mount context needed to resume it.
type Record struct {
	Snapshot  flow.Snapshot     `msgpack:"snapshot"`
	Mode      model.Mode        `msgpack:"mode"`
	PageURL   string            `msgpack:"page_url,omitempty"`
	UserAgent string            `msgpack:"user_agent,omitempty"`
	Theme     model.ThemeTokens `msgpack:"theme,omitempty"`
	CSRF      string            `msgpack:"csrf,omitempty"`
}

// Store persists session records by session id.
type Store interface {
	Save(ctx context.Context, id string, rec Record) error
	Load(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape NewID produces.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type entry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process Store. Records are stored msgpack-encoded so
// callers never share maps with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL sets the idle expiry. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save stores rec under id and refreshes its expiry.
func (s *MemoryStore) Save(ctx context.Context, id string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("session: id is required")
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry{data: data, expires: s.now().Add(s.ttl)}
	return nil
}

// Load returns the record stored under id and slides its expiry.
func (s *MemoryStore) Load(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	now := s.now()
	e, ok := s.entries[id]
	if ok && !now.Before(e.expires) {
		delete(s.entries, id)
		ok = false
	}
	if ok {
		e.expires = now.Add(s.ttl)
		s.entries[id] = e
	}
	s.mu.Unlock()

	if !ok {
		return Record{}, ErrNotFound
	}

	var rec Record
	dec := msgpack.NewDecoder(bytes.NewReader(e.data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("session: decode %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes id. Deleting an unknown id is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
