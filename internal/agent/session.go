package agent

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nexusnode/relay/internal/protocol"
)

// outboundQueueCapacity bounds how many ClientMessages (Responses/Heartbeats)
// can be buffered waiting to be written before forwarders start blocking.
const outboundQueueCapacity = 256

// runSession dials the relay, performs the Register/Registered handshake,
// and then services requests until the connection drops or ctx is canceled.
// onConnected is invoked immediately after a successful dial — before the
// handshake — so the caller can reset its reconnect backoff as soon as the
// relay is reachable, per spec.md's "reset to 1s on a successful connection"
// (not on a successful registration, which may be legitimately and
// persistently rejected by a bad token).
func runSession(ctx context.Context, cfg Config, onConnected func()) (registered bool, err error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Server)
	if err != nil {
		return false, fmt.Errorf("agent: dialing relay %s: %w", cfg.Server, err)
	}
	defer conn.Close()
	onConnected()

	return handleConn(ctx, conn, cfg)
}

// handleConn performs the handshake and services requests over an already
// established connection. Split out from runSession so tests can drive it
// over a net.Pipe instead of a real TCP dial.
func handleConn(ctx context.Context, conn net.Conn, cfg Config) (registered bool, err error) {
	if err := protocol.WriteClientMessage(conn, protocol.Register{Slug: cfg.Slug, Token: cfg.Token}); err != nil {
		return false, fmt.Errorf("agent: sending register: %w", err)
	}

	msg, err := protocol.ReadServerMessage(conn)
	if err != nil {
		return false, fmt.Errorf("agent: awaiting registered: %w", err)
	}
	reply, ok := msg.(protocol.Registered)
	if !ok {
		return false, fmt.Errorf("agent: expected registered message, got %T", msg)
	}
	if !reply.OK {
		return false, fmt.Errorf("agent: registration rejected: %s", reply.Error)
	}

	log.Info().Str("slug", cfg.Slug).Str("server", cfg.Server).Msg("registered with relay")

	outbound := make(chan protocol.ClientMessage, outboundQueueCapacity)
	done := make(chan struct{})

	// close the connection on cancellation or once either activity has
	// exited, so the blocked reader returns and the session ends.
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go writerLoop(conn, outbound, done)
	readErr := readerLoop(ctx, conn, cfg, outbound, done)
	closeOnceSignal(done)

	return true, readErr
}

// closeOnceSignalMu serializes closeOnceSignal so concurrent callers cannot
// both observe done as open and close it twice.
var closeOnceSignalMu sync.Mutex

// closeOnceSignal closes done at most once, used by the writer and reader
// activities to report "I have exited" without a double-close panic.
func closeOnceSignal(done chan struct{}) {
	closeOnceSignalMu.Lock()
	defer closeOnceSignalMu.Unlock()
	select {
	case <-done:
	default:
		close(done)
	}
}

// writerLoop drains outbound and writes each message to conn, exiting once
// done fires. outbound is never closed: forwarder goroutines race to send on
// it right up until done fires, and closing a channel concurrent senders are
// still writing to would panic.
func writerLoop(conn net.Conn, outbound <-chan protocol.ClientMessage, done chan struct{}) {
	defer closeOnceSignal(done)
	for {
		select {
		case msg := <-outbound:
			if err := protocol.WriteClientMessage(conn, msg); err != nil {
				log.Warn().Err(err).Msg("agent: writing frame to relay failed")
				return
			}
		case <-done:
			return
		}
	}
}

// readerLoop reads server frames, answers Pings with Heartbeats, and spawns
// a forwarder goroutine per Request, each replying by enqueueing a Response
// onto outbound.
func readerLoop(ctx context.Context, conn net.Conn, cfg Config, outbound chan<- protocol.ClientMessage, done <-chan struct{}) error {
	for {
		msg, err := protocol.ReadServerMessage(conn)
		if err != nil {
			return fmt.Errorf("agent: relay read error: %w", err)
		}
		if msg == nil {
			return fmt.Errorf("agent: relay closed the connection")
		}

		switch m := msg.(type) {
		case protocol.Ping:
			select {
			case outbound <- protocol.Heartbeat{}:
			case <-done:
				return nil
			}
		case protocol.Request:
			go func(req protocol.Request) {
				resp := forward(ctx, cfg.LocalPort, req)
				select {
				case outbound <- resp:
				case <-done:
				}
			}(m)
		case protocol.Registered:
			log.Warn().Str("slug", cfg.Slug).Msg("agent: unexpected registered message — ignoring")
		}
	}
}
