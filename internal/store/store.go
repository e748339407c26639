// Package store defines the persistence contracts for accounts and vault
// items, with Mongo-backed and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrDuplicateEmail = errors.New("store: email already registered")
)

// Account is a registered user. KDFSalt is the persistent salt the vault
// key is re-derived from on every login; it is distinct from the salt
// embedded in PasswordHash and immutable for the account's lifetime.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	KDFSalt      []byte
	CreatedAt    time.Time
}

// Item is one stored credential. The secret exists only as Ciphertext;
// Ciphertext and Nonce are written together, never independently. Title,
// Username and URL are plaintext metadata.
type Item struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Title      string
	Username   string
	URL        string
	Ciphertext []byte
	Nonce      []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AccountStore interface {
	// Save inserts a new account. Returns ErrDuplicateEmail if the email
	// is already registered (case-insensitively).
	Save(ctx context.Context, a *Account) error
	// FindByEmail looks up an account by email, case-insensitively.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	Exists(ctx context.Context, email string) (bool, error)
}

type ItemStore interface {
	// Save upserts an item keyed by (ID, AccountID).
	Save(ctx context.Context, it *Item) error
	// Find returns the item only if it belongs to accountID; a missing or
	// foreign item is ErrNotFound either way.
	Find(ctx context.Context, id, accountID uuid.UUID) (*Item, error)
	Delete(ctx context.Context, id, accountID uuid.UUID) error
	// List returns the account's items ordered by creation time ascending.
	List(ctx context.Context, accountID uuid.UUID) ([]Item, error)
}
