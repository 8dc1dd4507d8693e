package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rs/zerolog/log"

	"github.com/nexusnode/relay/internal/relay"
)

func newServerCmd() *cobra.Command {
	var tcpPort, httpPort uint16
	var databaseURL, mainSlug string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the public relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := relay.NewServer(relay.Config{
				TCPPort:     tcpPort,
				HTTPPort:    httpPort,
				DatabaseURL: databaseURL,
				MainSlug:    mainSlug,
			})
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			log.Info().Msg("relay server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Uint16Var(&tcpPort, "tcp-port", 7443, "TCP port relay clients connect to")
	flags.Uint16Var(&httpPort, "http-port", 7001, "HTTP port public ingress traffic arrives on")
	flags.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres:// DSN for the directory store")
	flags.StringVar(&mainSlug, "main-slug", envOr("RELAY_MAIN_SLUG", "nexusnode"), "slug treated as the apex/home instance")

	return cmd
}
