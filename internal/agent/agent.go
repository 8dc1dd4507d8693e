package agent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Agent maintains one persistent tunnel session to a relay server,
// reconnecting with exponential backoff whenever the connection drops.
type Agent struct {
	cfg Config
}

// New creates an agent from the given configuration.
func New(cfg Config) *Agent {
	return &Agent{cfg: cfg}
}

// Run blocks until ctx is canceled, reconnecting the tunnel as needed.
func (a *Agent) Run(ctx context.Context) error {
	delay := initialBackoff
	onConnected := func() {
		// a successful TCP dial proves the relay is reachable; reset the
		// backoff here rather than after the handshake so a persistently
		// rejected token doesn't climb to the 30s cap on a healthy network.
		delay = initialBackoff
	}
	for {
		_, err := runSession(ctx, a.cfg, onConnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn().Err(err).Dur("retry_in", delay).Msg("tunnel disconnected, reconnecting")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}
