package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Credential store keys. They mirror the values a session needs to survive a
// restart: tokens, advisory expiry and the in-flight PKCE verifier.
const (
	keyAccessToken  = "sp_access_token"
	keyRefreshToken = "sp_refresh_token"
	keyExpiresAt    = "sp_token_expires_at"
	keyVerifier     = "sp_pkce_verifier"
)

const (
	verifierLength   = 64
	verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

	// refresh this long before the stored expiry to avoid needless traffic
	// on every cycle; a 401 remains the authoritative expiry signal.
	refreshWindow = 30 * time.Second
)

var (
	ErrNoClientID = errors.New("spotify client id is not configured")
	ErrAuthFailed = errors.New("spotify auth failed")
)

// Store is the durable key->string cache the manager persists credentials in.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	SetAll(values map[string]string) error
}

type Manager struct {
	store        Store
	clientID     string
	authorizeURL string
	tokenURL     string
	redirectURI  string
	scopes       string
	httpClient   *http.Client
	now          func() time.Time

	// state parameter of the most recent BeginLogin, checked by the
	// callback handler.
	loginState string
}

type ManagerConfig struct {
	Store        Store
	ClientID     string
	AuthorizeURL string
	TokenURL     string
	RedirectURI  string
	Scopes       string
	HTTPClient   *http.Client
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("nil credential store")
	}
	if cfg.AuthorizeURL == "" || cfg.TokenURL == "" {
		return nil, errors.New("authorize and token endpoints are required")
	}
	if cfg.RedirectURI == "" {
		return nil, errors.New("redirect uri is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Manager{
		store:        cfg.Store,
		clientID:     cfg.ClientID,
		authorizeURL: cfg.AuthorizeURL,
		tokenURL:     cfg.TokenURL,
		redirectURI:  cfg.RedirectURI,
		scopes:       cfg.Scopes,
		httpClient:   httpClient,
		now:          time.Now,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// BeginLogin generates a fresh PKCE verifier, persists it, and returns the
// authorization URL the user agent must visit. The redirect URI is sent
// byte-for-byte as configured; it has to match the provider registration
// exactly.
func (m *Manager) BeginLogin() (string, error) {
	if m.clientID == "" {
		return "", ErrNoClientID
	}

	verifier, err := randomVerifier()
	if err != nil {
		return "", fmt.Errorf("failed to generate pkce verifier: %w", err)
	}
	if err := m.store.Set(keyVerifier, verifier); err != nil {
		return "", fmt.Errorf("failed to persist pkce verifier: %w", err)
	}

	state, err := randomVerifier()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	m.loginState = state

	params := url.Values{}
	params.Set("client_id", m.clientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", m.redirectURI)
	params.Set("code_challenge_method", "S256")
	params.Set("code_challenge", codeChallenge(verifier))
	params.Set("scope", m.scopes)
	params.Set("state", state)
	params.Set("show_dialog", "false")

	return m.authorizeURL + "?" + params.Encode(), nil
}

// CompleteLogin exchanges an authorization code for tokens. An empty code or
// a missing stored verifier is a recoverable dead end, not an error; the
// caller simply stays logged out. A rejected exchange returns ErrAuthFailed.
func (m *Manager) CompleteLogin(ctx context.Context, code string) error {
	if code == "" {
		return nil
	}

	verifier, ok := m.store.Get(keyVerifier)
	if !ok || verifier == "" {
		log.Warn("[Auth] authorization code received without a stored verifier, ignoring")
		return nil
	}

	form := url.Values{}
	form.Set("client_id", m.clientID)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", m.redirectURI)
	form.Set("code_verifier", verifier)

	tok, err := m.postToken(ctx, form)
	if err != nil {
		log.Warnf("[Auth] code exchange failed: %v", err)
		return ErrAuthFailed
	}

	refresh := tok.RefreshToken // may legitimately be empty
	err = m.store.SetAll(map[string]string{
		keyAccessToken:  tok.AccessToken,
		keyRefreshToken: refresh,
		keyExpiresAt:    strconv.FormatInt(m.expiryEpochMs(tok.ExpiresIn), 10),
	})
	if err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	log.Info("[Auth] connected to spotify")
	return nil
}

// EnsureFreshToken returns the access token to use for the next request, or
// "" when logged out. It refreshes only when the advisory expiry is within
// the refresh window and a refresh token exists; on any refresh failure it
// returns the old token unchanged and lets a 401 drive recovery. It never
// returns an error.
func (m *Manager) EnsureFreshToken(ctx context.Context) string {
	access, ok := m.store.Get(keyAccessToken)
	if !ok || access == "" {
		return ""
	}

	expiresAt := m.storedExpiry()
	if m.now().UnixMilli() < expiresAt-refreshWindow.Milliseconds() {
		return access
	}

	refresh, _ := m.store.Get(keyRefreshToken)
	if refresh == "" {
		// best effort: hand out the possibly-stale token and let the
		// player endpoint's 401 be the real signal.
		return access
	}

	form := url.Values{}
	form.Set("client_id", m.clientID)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refresh)

	tok, err := m.postToken(ctx, form)
	if err != nil {
		log.Warnf("[Auth] token refresh failed: %v", err)
		return access
	}

	values := map[string]string{
		keyAccessToken: tok.AccessToken,
		keyExpiresAt:   strconv.FormatInt(m.expiryEpochMs(tok.ExpiresIn), 10),
	}
	if tok.RefreshToken != "" {
		values[keyRefreshToken] = tok.RefreshToken
	}
	if err := m.store.SetAll(values); err != nil {
		log.Warnf("[Auth] failed to persist refreshed token: %v", err)
	}

	return tok.AccessToken
}

// InvalidateExpiry marks the stored token as expired right now, forcing the
// next EnsureFreshToken call down the refresh path. Called after a 401.
func (m *Manager) InvalidateExpiry() {
	if err := m.store.Set(keyExpiresAt, "0"); err != nil {
		log.Warnf("[Auth] failed to invalidate token expiry: %v", err)
	}
}

// LoggedIn reports whether an access token is stored at all.
func (m *Manager) LoggedIn() bool {
	access, ok := m.store.Get(keyAccessToken)
	return ok && access != ""
}

// Logout overwrites all stored credentials with empty values.
func (m *Manager) Logout() error {
	return m.store.SetAll(map[string]string{
		keyAccessToken:  "",
		keyRefreshToken: "",
		keyExpiresAt:    "0",
		keyVerifier:     "",
	})
}

func (m *Manager) storedExpiry() int64 {
	raw, ok := m.store.Get(keyExpiresAt)
	if !ok {
		return 0
	}
	expiresAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return expiresAt
}

func (m *Manager) expiryEpochMs(expiresInSeconds int64) int64 {
	return m.now().UnixMilli() + expiresInSeconds*1000
}

func (m *Manager) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("token response missing access token")
	}

	return &tok, nil
}

func codeChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

func randomVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, verifierLength)
	for i, b := range buf {
		out[i] = verifierAlphabet[int(b)%len(verifierAlphabet)]
	}
	return string(out), nil
}
