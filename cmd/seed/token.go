package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"digital-checkout/internal/infra/api"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Mint a bearer token for a user with the configured JWT secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cancel, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer cancel()
		if e.cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is not configured")
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		tok, err := api.NewAuthenticator(e.cfg.Auth.JWTSecret, false).Mint(args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}
