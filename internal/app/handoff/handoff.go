// Package handoff carries the "petition from prayer" context from the wall to
// the petition page. A slot holds at most one record per visitor; Take returns
// it once and clears it.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultTTL bounds how long an unread record survives.
const DefaultTTL = 10 * time.Minute

var ErrNoVisitor = errors.New("handoff: visitor id is required")

// Context is the record written by the wall and consumed by the petition page.
type Context struct {
	PrayerID   int64  `json:"prayerId"`
	PrayerText string `json:"prayerText"`
	PrayerType string `json:"prayerType"`
}

// Slot is a single-consumer, write-once / read-once store keyed by visitor.
type Slot interface {
	Put(ctx context.Context, visitorID string, c Context) error
	// Take returns the record and clears it. ok is false when nothing is
	// stored, it expired, or another reader already took it.
	Take(ctx context.Context, visitorID string) (c Context, ok bool, err error)
}

type memoryEntry struct {
	ctx     Context
	expires time.Time
}

// MemorySlot keeps records in process memory.
type MemorySlot struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemorySlot(ttl time.Duration) *MemorySlot {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemorySlot{TTL: ttl, Now: time.Now, entries: make(map[string]memoryEntry)}
}

func (s *MemorySlot) Put(_ context.Context, visitorID string, c Context) error {
	if strings.TrimSpace(visitorID) == "" {
		return ErrNoVisitor
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[visitorID] = memoryEntry{ctx: c, expires: s.Now().Add(s.TTL)}
	return nil
}

func (s *MemorySlot) Take(_ context.Context, visitorID string) (Context, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[visitorID]
	if !ok {
		return Context{}, false, nil
	}
	delete(s.entries, visitorID)
	if !s.Now().Before(entry.expires) {
		return Context{}, false, nil
	}
	return entry.ctx, true, nil
}

// Len reports stored records, expired ones included until the next Put.
func (s *MemorySlot) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemorySlot) sweep() {
	now := s.Now()
	for id, entry := range s.entries {
		if !now.Before(entry.expires) {
			delete(s.entries, id)
		}
	}
}

// KVSlot stores records in a JetStream key-value bucket whose TTL expires
// unread entries.
type KVSlot struct {
	KV nats.KeyValue
}

func NewKVSlot(kv nats.KeyValue) *KVSlot {
	return &KVSlot{KV: kv}
}

func (s *KVSlot) Put(_ context.Context, visitorID string, c Context) error {
	if strings.TrimSpace(visitorID) == "" {
		return ErrNoVisitor
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.KV.Put(visitorID, payload)
	return err
}

// Take deletes at the revision it read, so two racing readers cannot both
// consume the same record.
func (s *KVSlot) Take(_ context.Context, visitorID string) (Context, bool, error) {
	entry, err := s.KV.Get(visitorID)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return Context{}, false, nil
	}
	if err != nil {
		return Context{}, false, err
	}
	if err := s.KV.Delete(visitorID, nats.LastRevision(entry.Revision())); err != nil {
		if lostRace(err) {
			return Context{}, false, nil
		}
		return Context{}, false, err
	}

	var c Context
	if err := json.Unmarshal(entry.Value(), &c); err != nil {
		return Context{}, false, err
	}
	return c, true, nil
}

// lostRace reports whether a revision-checked delete failed because another
// reader already consumed the entry.
func lostRace(err error) bool {
	if errors.Is(err, nats.ErrKeyExists) {
		return true
	}
	var apiErr *nats.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == nats.JSErrCodeStreamWrongLastSequence
}
