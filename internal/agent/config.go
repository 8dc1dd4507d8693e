package agent

import "time"

// Config holds everything a client needs to maintain one tunnel to a relay
// server, gathered from CLI flags/env by the client command in
// cmd/nexusnode-relay.
type Config struct {
	Server    string // relay TCP address, e.g. "relay.nexusnode.app:7443"
	Slug      string
	Token     string
	LocalPort uint16
}

// initialBackoff, maxBackoff bound the reconnect loop's exponential backoff.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)
