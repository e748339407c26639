package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hlothaire/miniLastPass/internal/crypto"
	"github.com/hlothaire/miniLastPass/internal/keystore"
)

// AuthCookie is the bearer-credential cookie. HttpOnly, SameSite=Lax;
// cleared with an empty value and zero max-age.
const AuthCookie = "AUTH_TOKEN"

// Principal is the resolved identity of an authenticated request. VaultKey
// is a private copy of the session's derived key; the middleware wipes it
// once the handler returns.
type Principal struct {
	AccountID uuid.UUID
	Email     string
	SessionID string
	VaultKey  []byte
}

type ctxKey int

const principalKey ctxKey = 1

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// TokenFromRequest pulls the session token out of the auth cookie.
func TokenFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(AuthCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ClearAuthCookie short-circuits the credential: empty value, Max-Age=0.
func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAuth resolves the session on every call: token signature/expiry,
// then the derived key. A cryptographically valid token whose key has
// been evicted is still unauthenticated; token validity and key presence
// expire independently and the shorter one wins. Every failure clears the
// cookie so the client stops presenting a dead credential.
func RequireAuth(issuer *TokenIssuer, keys *keystore.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := TokenFromRequest(r)
			if !ok {
				unauthenticated(w)
				return
			}
			claims, err := issuer.Parse(token)
			if err != nil {
				unauthenticated(w)
				return
			}
			accountID, err := uuid.Parse(claims.Subject)
			if err != nil {
				unauthenticated(w)
				return
			}
			key, ok := keys.Get(claims.ID)
			if !ok {
				// Evicted or never present; drop any stale entry too.
				keys.Remove(claims.ID)
				unauthenticated(w)
				return
			}
			defer crypto.Zero(key)

			p := &Principal{
				AccountID: accountID,
				Email:     claims.Email,
				SessionID: claims.ID,
				VaultKey:  key,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func unauthenticated(w http.ResponseWriter) {
	ClearAuthCookie(w)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
