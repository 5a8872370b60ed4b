package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (s *memStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *memStore) Set(key, value string) error {
	s.values[key] = value
	return nil
}

func (s *memStore) SetAll(values map[string]string) error {
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func newTestManager(t *testing.T, store Store, tokenURL string) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		Store:        store,
		ClientID:     "client-id",
		AuthorizeURL: "https://accounts.example.com/authorize",
		TokenURL:     tokenURL,
		RedirectURI:  "http://127.0.0.1:8888/callback",
		Scopes:       "user-read-currently-playing user-read-playback-state",
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

func TestBeginLoginRequiresClientID(t *testing.T) {
	m, err := NewManager(ManagerConfig{
		Store:        newMemStore(),
		AuthorizeURL: "https://accounts.example.com/authorize",
		TokenURL:     "https://accounts.example.com/api/token",
		RedirectURI:  "http://127.0.0.1:8888/callback",
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if _, err := m.BeginLogin(); err != ErrNoClientID {
		t.Fatalf("expected ErrNoClientID, got %v", err)
	}
}

func TestBeginLoginStoresVerifierAndBuildsURL(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, "https://accounts.example.com/api/token")

	authURL, err := m.BeginLogin()
	if err != nil {
		t.Fatalf("begin login failed: %v", err)
	}

	verifier, ok := store.Get(keyVerifier)
	if !ok {
		t.Fatal("expected verifier to be persisted")
	}
	if len(verifier) != verifierLength {
		t.Errorf("expected verifier length %d, got %d", verifierLength, len(verifier))
	}
	for _, c := range verifier {
		if !strings.ContainsRune(verifierAlphabet, c) {
			t.Errorf("verifier contains character %q outside the unreserved alphabet", c)
		}
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("invalid auth url: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("unexpected client_id %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("unexpected response_type %q", q.Get("response_type"))
	}
	if q.Get("redirect_uri") != "http://127.0.0.1:8888/callback" {
		t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("unexpected challenge method %q", q.Get("code_challenge_method"))
	}

	digest := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(digest[:])
	if got := q.Get("code_challenge"); got != want {
		t.Errorf("challenge mismatch: got %q want %q", got, want)
	}
	if strings.ContainsAny(q.Get("code_challenge"), "+/=") {
		t.Error("challenge must be base64url without padding")
	}
}

func TestCompleteLoginStoresTokens(t *testing.T) {
	store := newMemStore()
	store.Set(keyVerifier, "stored-verifier")

	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad form: %v", err)
		}
		gotForm = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"code":          r.PostFormValue("code"),
			"code_verifier": r.PostFormValue("code_verifier"),
			"client_id":     r.PostFormValue("client_id"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`))
	}))
	defer srv.Close()

	m := newTestManager(t, store, srv.URL)
	now := time.Now()
	m.now = func() time.Time { return now }

	if err := m.CompleteLogin(context.Background(), "the-code"); err != nil {
		t.Fatalf("complete login failed: %v", err)
	}

	if gotForm["grant_type"] != "authorization_code" || gotForm["code"] != "the-code" ||
		gotForm["code_verifier"] != "stored-verifier" || gotForm["client_id"] != "client-id" {
		t.Errorf("unexpected exchange form: %v", gotForm)
	}

	if tok, _ := store.Get(keyAccessToken); tok != "at-1" {
		t.Errorf("expected access token stored, got %q", tok)
	}
	if tok, _ := store.Get(keyRefreshToken); tok != "rt-1" {
		t.Errorf("expected refresh token stored, got %q", tok)
	}
	raw, _ := store.Get(keyExpiresAt)
	expiresAt, _ := strconv.ParseInt(raw, 10, 64)
	if want := now.UnixMilli() + 3600*1000; expiresAt != want {
		t.Errorf("expected expiry %d, got %d", want, expiresAt)
	}
}

func TestCompleteLoginWithoutVerifierIsNoop(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	store := newMemStore()
	m := newTestManager(t, store, srv.URL)

	if err := m.CompleteLogin(context.Background(), "the-code"); err != nil {
		t.Fatalf("expected recoverable no-op, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no token request, got %d", calls)
	}
	if _, ok := store.Get(keyAccessToken); ok {
		t.Error("expected no token stored")
	}
}

func TestCompleteLoginRejectedExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer srv.Close()

	store := newMemStore()
	store.Set(keyVerifier, "v")
	m := newTestManager(t, store, srv.URL)

	if err := m.CompleteLogin(context.Background(), "the-code"); err != ErrAuthFailed {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestEnsureFreshTokenLoggedOut(t *testing.T) {
	m := newTestManager(t, newMemStore(), "https://accounts.example.com/api/token")
	if got := m.EnsureFreshToken(context.Background()); got != "" {
		t.Errorf("expected empty token when logged out, got %q", got)
	}
}

func TestEnsureFreshTokenCachedWhileFresh(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	store := newMemStore()
	m := newTestManager(t, store, srv.URL)
	now := time.Now()
	m.now = func() time.Time { return now }

	store.SetAll(map[string]string{
		keyAccessToken:  "cached",
		keyRefreshToken: "ref",
		keyExpiresAt:    strconv.FormatInt(now.UnixMilli()+60000, 10),
	})

	if got := m.EnsureFreshToken(context.Background()); got != "cached" {
		t.Errorf("expected cached token, got %q", got)
	}
	if calls != 0 {
		t.Errorf("expected no network call for a fresh token, got %d", calls)
	}
}

func TestEnsureFreshTokenRefreshesNearExpiry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad form: %v", err)
		}
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Errorf("expected refresh_token grant, got %q", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "ref" {
			t.Errorf("unexpected refresh token %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","expires_in":3600}`))
	}))
	defer srv.Close()

	store := newMemStore()
	m := newTestManager(t, store, srv.URL)
	now := time.Now()
	m.now = func() time.Time { return now }

	store.SetAll(map[string]string{
		keyAccessToken:  "at-old",
		keyRefreshToken: "ref",
		keyExpiresAt:    strconv.FormatInt(now.UnixMilli()+10000, 10),
	})

	if got := m.EnsureFreshToken(context.Background()); got != "at-new" {
		t.Errorf("expected refreshed token, got %q", got)
	}
	if calls != 1 {
		t.Errorf("expected exactly one refresh call, got %d", calls)
	}
	// refresh token without replacement stays in place
	if ref, _ := store.Get(keyRefreshToken); ref != "ref" {
		t.Errorf("expected refresh token preserved, got %q", ref)
	}
}

func TestEnsureFreshTokenWithoutRefreshTokenIsOptimistic(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	store := newMemStore()
	m := newTestManager(t, store, srv.URL)
	now := time.Now()
	m.now = func() time.Time { return now }

	store.SetAll(map[string]string{
		keyAccessToken: "stale",
		keyExpiresAt:   "0",
	})

	if got := m.EnsureFreshToken(context.Background()); got != "stale" {
		t.Errorf("expected the stale token back, got %q", got)
	}
	if calls != 0 {
		t.Errorf("expected no network call without a refresh token, got %d", calls)
	}
}

func TestEnsureFreshTokenKeepsOldTokenOnRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	store := newMemStore()
	m := newTestManager(t, store, srv.URL)
	now := time.Now()
	m.now = func() time.Time { return now }

	store.SetAll(map[string]string{
		keyAccessToken:  "at-old",
		keyRefreshToken: "ref",
		keyExpiresAt:    "0",
	})

	if got := m.EnsureFreshToken(context.Background()); got != "at-old" {
		t.Errorf("expected old token on refresh failure, got %q", got)
	}
}

func TestInvalidateExpiryForcesRefreshPath(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-forced","expires_in":3600}`))
	}))
	defer srv.Close()

	store := newMemStore()
	m := newTestManager(t, store, srv.URL)
	now := time.Now()
	m.now = func() time.Time { return now }

	store.SetAll(map[string]string{
		keyAccessToken:  "at-old",
		keyRefreshToken: "ref",
		keyExpiresAt:    strconv.FormatInt(now.UnixMilli()+3600000, 10),
	})

	m.InvalidateExpiry()

	if got := m.EnsureFreshToken(context.Background()); got != "at-forced" {
		t.Errorf("expected forced refresh, got %q", got)
	}
	if calls != 1 {
		t.Errorf("expected one refresh call after invalidation, got %d", calls)
	}
}
