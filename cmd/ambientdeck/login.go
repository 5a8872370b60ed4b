package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ambientdeck/internal/auth"
	"ambientdeck/internal/credstore"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "connect a spotify account",
	Long: `runs the oauth authorization flow in the terminal. prints the
authorization url, waits for the redirect on the loopback callback and
stores the resulting tokens in the credential store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, closeStore, err := buildManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := loginFlow(ctx, manager, false); err != nil {
			return err
		}

		fmt.Println("connected.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "forget the stored spotify credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, closeStore, err := buildManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		if !manager.LoggedIn() {
			fmt.Println("not logged in.")
			return nil
		}
		if err := manager.Logout(); err != nil {
			return err
		}

		fmt.Println("logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func buildManager(cmd *cobra.Command) (*auth.Manager, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	setupLogging(cfg)

	store, err := credstore.Open(cfg.CredentialsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	manager, err := auth.NewManager(auth.ManagerConfig{
		Store:        store,
		ClientID:     cfg.SpotifyClientID,
		AuthorizeURL: cfg.AuthorizeURL,
		TokenURL:     cfg.TokenURL,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		HTTPClient:   &http.Client{Timeout: cfg.HTTPTimeout()},
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create auth manager: %w", err)
	}

	return manager, func() { store.Close() }, nil
}
