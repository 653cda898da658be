package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/lpar-forwarder/internal/config"
	"github.com/rmacdonaldsmith/lpar-forwarder/internal/httpapi"
)

func newTokenCommand() *cobra.Command {
	var (
		configFile string
		secret     string
		clientID   string
		admin      bool
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the status API",
		Long: `Sign a JWT for the status API with api.secret_key from the config file,
or with --secret. Tokens with --admin can read /api/v1/admin/stats.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.Load(configFile)
				if err != nil {
					return err
				}
				if cfg.API == nil || cfg.API.SecretKey == "" {
					return errors.New("no api.secret_key in the config file; pass --secret")
				}
				secret = cfg.API.SecretKey
			}

			token, expiresAt, err := httpapi.NewTokens(secret, ttl).Issue(clientID, admin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Token for %s expires at %s\n", clientID, expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config-file", "c", config.DefaultPath, "File path of the config file")
	flags.StringVar(&secret, "secret", "", "Signing secret (default: api.secret_key of the config file)")
	flags.StringVar(&clientID, "client-id", "operator", "Client ID carried by the token")
	flags.BoolVar(&admin, "admin", false, "Grant admin access")
	flags.DurationVar(&ttl, "ttl", httpapi.DefaultTokenTTL, "Token lifetime")
	return cmd
}
