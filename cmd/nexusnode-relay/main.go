// Command nexusnode-relay runs either side of a reverse tunnel: `server`
// binds the public TCP and HTTP listeners, `client` dials out to a relay
// and forwards requests to a local backend.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nexusnode/relay/internal/logging"
)

func main() {
	logging.Init()

	root := &cobra.Command{
		Use:   "nexusnode-relay",
		Short: "Reverse tunnel relay: expose localhost behind NAT through a public relay",
	}
	root.AddCommand(newServerCmd(), newClientCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// envOr returns os.Getenv(key) if set, else fallback. Flags are bound to
// these as their default, so the precedence ends up flag > env > fallback,
// mirroring clap's `env = "..."` attribute in the original CLI.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
