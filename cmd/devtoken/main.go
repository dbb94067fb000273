package main

import (
	"fmt"
	"os"
	"time"

	"asksource-be/internal/config"
	"asksource-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// devtoken signs a bearer token with JWT_SECRET for local runs of the terminal client.
func main() {
	cfg := config.Load()
	var (
		userID string
		ttl    time.Duration
	)

	root := &cobra.Command{
		Use:   "devtoken",
		Short: "Issue a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				id = parsed
			}

			token, err := serverutils.IssueToken(cfg.Auth.JWTSecret, id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	root.Flags().StringVar(&userID, "user", "", "user id to embed (random when empty)")
	root.Flags().DurationVar(&ttl, "ttl", cfg.Auth.TokenTTL, "token lifetime")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
