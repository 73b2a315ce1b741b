package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "recordshare/internal/jwt_token"
	id "recordshare/pkg/domain"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Identity token utilities",
	}
	cmd.AddCommand(newTokenIssueCmd(root))
	return cmd
}

// newTokenIssueCmd mints a token with the server's signing key. It stands in
// for the wallet gateway in development and tests.
func newTokenIssueCmd(root *rootOptions) *cobra.Command {
	var (
		address string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an identity token for an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			addr, err := id.ParseAddress(address)
			if err != nil {
				return fmt.Errorf("--address: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			tokens := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
			token, err := tokens.GenerateIdentityToken(addr, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "account address the token vouches for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}
