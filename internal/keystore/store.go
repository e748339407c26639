// Package keystore holds the per-session vault keys for their (short)
// lifetime. Keys live only in process memory: they are never written to
// durable storage and do not survive a restart.
package keystore

import (
	"sync"
	"time"
)

// DefaultTTL is the absolute lifetime of a cached key, independent of the
// session token's own expiry. Whichever is shorter ends the session.
const DefaultTTL = 4 * time.Hour

type entry struct {
	key       []byte
	createdAt time.Time
}

// Store maps a session identifier to a derived vault key. Safe for
// concurrent use; operations on distinct session ids never block each
// other. Expiry is enforced at read time, there is no background sweep.
type Store struct {
	ttl     time.Duration
	entries sync.Map // sessionID string -> *entry
	now     func() time.Time
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, now: time.Now}
}

// Put stores a private copy of key under sessionID, replacing any prior
// entry. The caller keeps ownership of its own buffer.
func (s *Store) Put(sessionID string, key []byte) {
	cp := append([]byte(nil), key...)
	s.entries.Store(sessionID, &entry{key: cp, createdAt: s.now()})
}

// Get returns a private copy of the key for sessionID, or ok=false if the
// session is unknown or its entry outlived the TTL. An expired entry is
// evicted on the spot; CompareAndDelete makes sure a concurrent re-Put
// under the same id is never clobbered.
func (s *Store) Get(sessionID string) ([]byte, bool) {
	v, ok := s.entries.Load(sessionID)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if s.now().Sub(e.createdAt) > s.ttl {
		s.entries.CompareAndDelete(sessionID, v)
		return nil, false
	}
	return append([]byte(nil), e.key...), true
}

// Remove drops the entry for sessionID. Removing an absent id is a no-op.
func (s *Store) Remove(sessionID string) {
	s.entries.Delete(sessionID)
}
