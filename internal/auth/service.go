package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hlothaire/miniLastPass/internal/crypto"
	"github.com/hlothaire/miniLastPass/internal/keystore"
	"github.com/hlothaire/miniLastPass/internal/ratelimit"
	"github.com/hlothaire/miniLastPass/internal/store"
)

const (
	loginWindow      = time.Minute
	loginMaxAttempts = 10
)

var (
	// ErrInvalidCredentials merges unknown-email and wrong-password: the
	// caller can not tell which one happened.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrEmailTaken         = errors.New("auth: email already registered")
)

// Profile is the account view returned to authenticated callers.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// LoginResult carries the signed token alongside the session id it embeds.
type LoginResult struct {
	Token     string
	SessionID string
	Profile   Profile
}

// Service drives the session state machine: signup, login (password
// verification, vault-key derivation, key caching, token issuance) and
// logout.
type Service struct {
	accounts store.AccountStore
	issuer   *TokenIssuer
	keys     *keystore.Store
	limiter  *ratelimit.Limiter
	kdf      crypto.KDFParams
	hash     HashParams
	logger   *zap.Logger
}

func NewService(accounts store.AccountStore, issuer *TokenIssuer, keys *keystore.Store,
	limiter *ratelimit.Limiter, kdf crypto.KDFParams, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		issuer:   issuer,
		keys:     keys,
		limiter:  limiter,
		kdf:      kdf,
		hash:     DefaultHashParams,
		logger:   logger,
	}
}

// Signup registers a new account with a fresh persistent KDF salt. No
// vault key is derived here; that happens on login.
func (s *Service) Signup(ctx context.Context, email, password string) (Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	exists, err := s.accounts.Exists(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	if exists {
		return Profile{}, ErrEmailTaken
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return Profile{}, err
	}
	hash, err := HashPassword(s.hash, password)
	if err != nil {
		return Profile{}, err
	}

	acct := &store.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		KDFSalt:      salt,
		CreatedAt:    time.Now(),
	}
	if err := s.accounts.Save(ctx, acct); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return Profile{}, ErrEmailTaken
		}
		return Profile{}, err
	}
	s.logger.Info("account created", zap.String("account_id", acct.ID.String()))
	return Profile{ID: acct.ID, Email: acct.Email}, nil
}

// Login verifies the password, derives the vault key from it and the
// account's persistent salt, binds the key to a fresh session id and
// issues a token carrying that id. The per-email attempt budget is
// consumed before anything else, so wrong and right passwords cost the
// same.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !s.limiter.TryConsume("login:"+email, loginWindow, loginMaxAttempts) {
		return LoginResult{}, fmt.Errorf("login: %w", ratelimit.ErrLimited)
	}

	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	ok, err := VerifyPassword(password, acct.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	pw := []byte(password)
	key := crypto.DeriveKey(pw, acct.KDFSalt, s.kdf)
	crypto.Zero(pw)
	defer crypto.Zero(key)

	sessionID := uuid.NewString()
	s.keys.Put(sessionID, key)

	token, err := s.issuer.Issue(acct.ID, acct.Email, sessionID)
	if err != nil {
		// No token, no key entry: the login either fully succeeds or
		// leaves nothing behind.
		s.keys.Remove(sessionID)
		return LoginResult{}, err
	}

	s.logger.Info("login", zap.String("account_id", acct.ID.String()))
	return LoginResult{
		Token:     token,
		SessionID: sessionID,
		Profile:   Profile{ID: acct.ID, Email: acct.Email},
	}, nil
}

// Logout evicts the session's derived key. Fire-and-forget: an unknown or
// empty session id is a no-op and Logout never fails.
func (s *Service) Logout(sessionID string) {
	if sessionID == "" {
		return
	}
	s.keys.Remove(sessionID)
}
