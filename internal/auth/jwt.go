package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hlothaire/miniLastPass/internal/crypto"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims carried by a session token. SessionID (jti) binds the token to
// exactly one derived-key entry; it is freshly generated per login and
// never reused across live sessions.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenIssuer mints and validates HS256-signed session tokens. The
// signing key is an HKDF subkey of the configured server secret, so the
// raw secret never signs anything directly.
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty token secret")
	}
	key, err := crypto.Subkey(secret, "minilastpass/token-signing/v1")
	if err != nil {
		return nil, err
	}
	return &TokenIssuer{signingKey: key, ttl: ttl}, nil
}

// TTL is the lifetime stamped into issued tokens.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for accountID with sessionID as the token id and an
// informational email claim.
func (i *TokenIssuer) Issue(accountID uuid.UUID, email, sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
}

// Parse validates signature and expiry and returns the claims. Expired
// and forged tokens fail the same way.
func (i *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.signingKey, nil
	})
	if err != nil || !tok.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate reports whether the token verifies and has not expired.
func (i *TokenIssuer) Validate(tokenStr string) bool {
	_, err := i.Parse(tokenStr)
	return err == nil
}

// SessionID extracts the session identifier without further checks beyond
// full validation.
func (i *TokenIssuer) SessionID(tokenStr string) (string, error) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// AccountID extracts the subject account id.
func (i *TokenIssuer) AccountID(tokenStr string) (uuid.UUID, error) {
	claims, err := i.Parse(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
