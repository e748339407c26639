package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryAccountStore keeps accounts in process memory. Used in tests and
// when no Mongo URI is configured.
type MemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*Account
	byEmail map[string]*Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byID:    map[uuid.UUID]*Account{},
		byEmail: map[string]*Account{},
	}
}

func (s *MemoryAccountStore) Save(_ context.Context, a *Account) error {
	email := normalizeEmail(a.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return ErrDuplicateEmail
	}
	clone := cloneAccount(a)
	clone.Email = email
	s.byID[clone.ID] = clone
	s.byEmail[email] = clone
	return nil
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.byEmail[normalizeEmail(email)]; ok {
		return cloneAccount(a), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryAccountStore) FindByID(_ context.Context, id uuid.UUID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.byID[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryAccountStore) Exists(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[normalizeEmail(email)]
	return ok, nil
}

// MemoryItemStore keeps vault items in process memory.
type MemoryItemStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Item
}

func NewMemoryItemStore() *MemoryItemStore {
	return &MemoryItemStore{items: map[uuid.UUID]*Item{}}
}

func (s *MemoryItemStore) Save(_ context.Context, it *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = cloneItem(it)
	return nil
}

func (s *MemoryItemStore) Find(_ context.Context, id, accountID uuid.UUID) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok || it.AccountID != accountID {
		return nil, ErrNotFound
	}
	return cloneItem(it), nil
}

func (s *MemoryItemStore) Delete(_ context.Context, id, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.AccountID != accountID {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryItemStore) List(_ context.Context, accountID uuid.UUID) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0)
	for _, it := range s.items {
		if it.AccountID == accountID {
			out = append(out, *cloneItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneAccount(a *Account) *Account {
	clone := *a
	clone.KDFSalt = append([]byte(nil), a.KDFSalt...)
	return &clone
}

func cloneItem(it *Item) *Item {
	clone := *it
	clone.Ciphertext = append([]byte(nil), it.Ciphertext...)
	clone.Nonce = append([]byte(nil), it.Nonce...)
	return &clone
}
