package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rs/zerolog/log"

	"github.com/nexusnode/relay/internal/agent"
)

func newClientCmd() *cobra.Command {
	var server, slug, token string
	var localPort uint16

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Connect to a relay server and expose a local backend through it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if slug == "" {
				return fmt.Errorf("--slug is required")
			}
			if token == "" {
				return fmt.Errorf("--token (or NEXUS_RELAY_TOKEN) is required")
			}

			a := agent.New(agent.Config{
				Server:    server,
				Slug:      slug,
				Token:     token,
				LocalPort: localPort,
			})

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := a.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			log.Info().Msg("agent stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&server, "server", "relay.nexusnode.app:7443", "relay server TCP address")
	flags.StringVar(&slug, "slug", "", "slug this client registers under (required)")
	flags.StringVar(&token, "token", envOr("NEXUS_RELAY_TOKEN", ""), "auth token for the slug")
	flags.Uint16Var(&localPort, "local-port", 80, "local backend port to forward requests to")

	return cmd
}
