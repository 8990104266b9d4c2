package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wildmind/studio-api/internal/auth"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenName   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := time.Duration(cfg.JWT.Expiration) * time.Hour
		token, err := auth.IssueSessionToken(cfg.JWT.Secret, auth.Identity{
			UserID: tokenUserID,
			Email:  tokenEmail,
			Name:   tokenName,
		}, ttl)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "User ID to embed in the token")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email to embed in the token")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name to embed in the token")
	_ = tokenCmd.MarkFlagRequired("user")
}
