package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hlothaire/miniLastPass/internal/auth"
	"github.com/hlothaire/miniLastPass/internal/crypto"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *http.Client) {
	t.Helper()
	cfg := Config{
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
		KDF:         crypto.KDFParams{Time: 1, Memory: 16 * 1024, Parallelism: 1, KeyLen: 32},
	}
	srv, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, ts, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestEndToEndVaultFlow(t *testing.T) {
	_, ts, client := newTestServer(t)

	// Signup.
	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup",
		map[string]string{"email": "a@x.com", "password": "twelvechars+pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	profile := decode[auth.Profile](t, resp)
	assert.Equal(t, "a@x.com", profile.Email)

	// Login sets the auth cookie and returns the profile.
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "twelvechars+pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logged := decode[auth.Profile](t, resp)
	assert.Equal(t, profile.ID, logged.ID)

	// Authenticated profile resolution.
	resp = doJSON(t, client, http.MethodGet, ts.URL+"/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[auth.Profile](t, resp)
	assert.Equal(t, "a@x.com", me.Email)

	// Create an item with secret S1.
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/vault",
		map[string]string{"title": "bank", "username": "u", "url": "https://b", "secret": "S1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]any](t, resp)
	itemID := created["id"].(string)

	// Reveal returns S1.
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/vault/"+itemID+"/reveal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "S1", decode[map[string]string](t, resp)["secret"])

	// Update the secret to S2; reveal reflects the replacement.
	resp = doJSON(t, client, http.MethodPut, ts.URL+"/api/vault/"+itemID,
		map[string]string{"secret": "S2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/vault/"+itemID+"/reveal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "S2", decode[map[string]string](t, resp)["secret"])

	// List exposes metadata only.
	resp = doJSON(t, client, http.MethodGet, ts.URL+"/api/vault", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]any](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "bank", list[0]["title"])
	assert.NotContains(t, list[0], "secret")
	assert.NotContains(t, list[0], "ciphertext")

	// Delete, then the list is empty.
	resp = doJSON(t, client, http.MethodDelete, ts.URL+"/api/vault/"+itemID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, client, http.MethodGet, ts.URL+"/api/vault", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]map[string]any](t, resp))
}

func TestLogoutEndsSessionWhileTokenStillValid(t *testing.T) {
	_, ts, client := newTestServer(t)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup",
		map[string]string{"email": "a@x.com", "password": "twelvechars+pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "twelvechars+pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Keep the token around: it stays cryptographically valid after logout.
	var token string
	for _, c := range client.Jar.Cookies(mustParse(t, ts.URL)) {
		if c.Name == auth.AuthCookie {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Re-present the old token by hand: the key is gone, so the request
	// is unauthenticated and the cookie is cleared again.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: auth.AuthCookie, Value: token})
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, raw.StatusCode)

	cleared := false
	for _, c := range raw.Cookies() {
		if c.Name == auth.AuthCookie && c.Value == "" && c.MaxAge <= 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected the dead credential to be cleared")
}

func TestLoginRateLimitedPerEmail(t *testing.T) {
	_, ts, client := newTestServer(t)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup",
		map[string]string{"email": "a@x.com", "password": "twelvechars+pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	for i := 0; i < 10; i++ {
		resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/login",
			map[string]string{"email": "a@x.com", "password": "wrong-password!"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, fmt.Sprintf("attempt %d", i+1))
		resp.Body.Close()
	}
	// Attempt 11 is limited regardless of password correctness.
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "twelvechars+pw"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

func TestUnauthenticatedAccessRejected(t *testing.T) {
	_, ts, client := newTestServer(t)

	for _, path := range []string{"/api/vault", "/api/auth/me"} {
		resp := doJSON(t, client, http.MethodGet, ts.URL+path, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestSignupValidation(t *testing.T) {
	_, ts, client := newTestServer(t)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup",
		map[string]string{"email": "not-an-email", "password": "twelvechars+pw"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup",
		map[string]string{"email": "a@x.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Duplicate email conflicts, case-insensitively.
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup",
		map[string]string{"email": "a@x.com", "password": "twelvechars+pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/auth/signup",
		map[string]string{"email": "A@X.COM", "password": "twelvechars+pw"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
