// Package vault implements the per-item secret flows: envelope
// encryption under the session's derived key, metadata listing, and
// rate-limited reveal.
package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hlothaire/miniLastPass/internal/crypto"
	"github.com/hlothaire/miniLastPass/internal/ratelimit"
	"github.com/hlothaire/miniLastPass/internal/store"
)

const (
	revealWindow      = 5 * time.Minute
	revealMaxAttempts = 5
)

var (
	// ErrItemNotFound covers both a missing item and an item owned by a
	// different account, so existence of other users' items never leaks.
	ErrItemNotFound = errors.New("vault: item not found")
	// ErrCrypto is an encryption/decryption failure. It most commonly
	// means an unavailable or mismatched vault key, so the boundary
	// treats it as unauthorized rather than a server fault.
	ErrCrypto = errors.New("vault: crypto failure")
)

// Recorder receives reveal events. Implementations must not fail the
// reveal; the audit.Log satisfies this.
type Recorder interface {
	RecordReveal(accountID, itemID uuid.UUID, origin string)
}

// ItemView is the metadata projection of an item. It never carries
// ciphertext or decrypted content.
type ItemView struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Title    string `json:"title"`
	Username string `json:"username"`
	URL      string `json:"url"`
	Secret   string `json:"secret"`
}

// UpdateRequest has pointer fields: nil leaves the stored value
// untouched. A non-nil Secret always produces a fresh nonce and a fully
// replaced ciphertext.
type UpdateRequest struct {
	Title    *string `json:"title"`
	Username *string `json:"username"`
	URL      *string `json:"url"`
	Secret   *string `json:"secret"`
}

type Service struct {
	items   store.ItemStore
	limiter *ratelimit.Limiter
	auditor Recorder
	logger  *zap.Logger
}

func NewService(items store.ItemStore, limiter *ratelimit.Limiter, auditor Recorder, logger *zap.Logger) *Service {
	return &Service{items: items, limiter: limiter, auditor: auditor, logger: logger}
}

// Create encrypts the secret under the session's vault key and stores the
// item. Ciphertext and nonce are written together, never apart.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, vaultKey []byte, req CreateRequest) (ItemView, error) {
	ct, nonce, err := sealSecret(vaultKey, req.Secret)
	if err != nil {
		return ItemView{}, err
	}
	now := time.Now()
	it := &store.Item{
		ID:         uuid.New(),
		AccountID:  accountID,
		Title:      req.Title,
		Username:   req.Username,
		URL:        req.URL,
		Ciphertext: ct,
		Nonce:      nonce,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.items.Save(ctx, it); err != nil {
		return ItemView{}, err
	}
	return viewOf(it), nil
}

// Update applies a partial update; only a new secret touches the
// ciphertext, and then wholesale.
func (s *Service) Update(ctx context.Context, accountID, itemID uuid.UUID, vaultKey []byte, req UpdateRequest) (ItemView, error) {
	it, err := s.items.Find(ctx, itemID, accountID)
	if err != nil {
		return ItemView{}, mapStoreErr(err)
	}
	if req.Title != nil {
		it.Title = *req.Title
	}
	if req.Username != nil {
		it.Username = *req.Username
	}
	if req.URL != nil {
		it.URL = *req.URL
	}
	if req.Secret != nil {
		ct, nonce, err := sealSecret(vaultKey, *req.Secret)
		if err != nil {
			return ItemView{}, err
		}
		it.Ciphertext = ct
		it.Nonce = nonce
	}
	it.UpdatedAt = time.Now()
	if err := s.items.Save(ctx, it); err != nil {
		return ItemView{}, err
	}
	return viewOf(it), nil
}

func (s *Service) Delete(ctx context.Context, accountID, itemID uuid.UUID) error {
	return mapStoreErr(s.items.Delete(ctx, itemID, accountID))
}

// List returns metadata only, ordered by creation time.
func (s *Service) List(ctx context.Context, accountID uuid.UUID) ([]ItemView, error) {
	items, err := s.items.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := make([]ItemView, 0, len(items))
	for i := range items {
		out = append(out, viewOf(&items[i]))
	}
	return out, nil
}

// Reveal decrypts one item's secret. The per-account budget is tighter
// than the login one; the audit record is advisory and never blocks the
// result.
func (s *Service) Reveal(ctx context.Context, accountID, itemID uuid.UUID, vaultKey []byte, origin string) (string, error) {
	if !s.limiter.TryConsume("reveal:"+accountID.String(), revealWindow, revealMaxAttempts) {
		return "", fmt.Errorf("reveal: %w", ratelimit.ErrLimited)
	}
	it, err := s.items.Find(ctx, itemID, accountID)
	if err != nil {
		return "", mapStoreErr(err)
	}
	pt, err := crypto.Decrypt(vaultKey, it.Ciphertext, it.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	secret := string(pt)
	crypto.Zero(pt)

	if s.auditor != nil {
		s.auditor.RecordReveal(accountID, itemID, origin)
	}
	return secret, nil
}

func sealSecret(vaultKey []byte, secret string) (ct, nonce []byte, err error) {
	pt := []byte(secret)
	defer crypto.Zero(pt)
	ct, nonce, err = crypto.Encrypt(vaultKey, pt)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCrypto, err)
	}
	return ct, nonce, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}

func viewOf(it *store.Item) ItemView {
	return ItemView{
		ID:        it.ID,
		Title:     it.Title,
		Username:  it.Username,
		URL:       it.URL,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}
