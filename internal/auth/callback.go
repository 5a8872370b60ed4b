package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// WaitForCode runs a loopback HTTP server on the redirect URI's host and
// waits for the provider to redirect back with an authorization code. It
// returns once a code arrives, the context is cancelled, or the provider
// reports an error.
func (m *Manager) WaitForCode(ctx context.Context) (string, error) {
	redirect, err := url.Parse(m.redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect uri %q: %w", m.redirectURI, err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	router := mux.NewRouter()
	router.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errCode := query.Get("error"); errCode != "" {
			http.Error(w, "Authorization was denied", http.StatusBadRequest)
			pushOnce(errCh, fmt.Errorf("authorization denied: %s", errCode))
			return
		}

		if state := query.Get("state"); m.loginState != "" && state != m.loginState {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			pushOnce(errCh, errors.New("state mismatch in callback"))
			return
		}

		code := query.Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			pushOnce(errCh, errors.New("callback missing authorization code"))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>Connected. You can close this window.</p></body></html>")

		select {
		case codeCh <- code:
		default:
		}
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: redirect.Host, Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pushOnce(errCh, fmt.Errorf("callback server failed: %w", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("[Auth] callback server shutdown: %v", err)
		}
	}()

	log.Infof("[Auth] waiting for authorization callback on %s", m.redirectURI)

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func pushOnce(ch chan error, err error) {
	select {
	case ch <- err:
	default:
	}
}
