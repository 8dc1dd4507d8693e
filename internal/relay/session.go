package relay

import (
	"context"
	"encoding/base64"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nexusnode/relay/internal/directory"
	"github.com/nexusnode/relay/internal/protocol"
	"github.com/nexusnode/relay/internal/registry"
)

// heartbeatInterval is how often the server pings a connected client, per spec.md §4.3 step 4.
const heartbeatInterval = 30 * time.Second

// acceptConnection runs the per-connection state machine described in
// spec.md §4.3: AwaitRegister → AuthCheck → Bind → Active → Terminate.
// It blocks until the session ends.
func acceptConnection(ctx context.Context, conn net.Conn, reg *registry.Registry, dir directory.Store) {
	defer conn.Close()

	// 1. AwaitRegister.
	msg, err := protocol.ReadClientMessage(conn)
	if err != nil {
		log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("reading register message failed")
		return
	}
	register, ok := msg.(protocol.Register)
	if !ok {
		_ = protocol.WriteServerMessage(conn, protocol.Registered{OK: false, Error: "Expected register message"})
		return
	}

	// 2. AuthCheck.
	authed, err := dir.Lookup(ctx, register.Slug, register.Token)
	if err != nil {
		log.Error().Err(err).Str("slug", register.Slug).Msg("directory lookup failed")
		_ = protocol.WriteServerMessage(conn, protocol.Registered{OK: false, Error: "Invalid slug or token"})
		return
	}
	if !authed {
		_ = protocol.WriteServerMessage(conn, protocol.Registered{OK: false, Error: "Invalid slug or token"})
		return
	}

	// 3. Bind.
	handle := registry.NewTunnelHandle(register.Slug)
	reg.Insert(register.Slug, handle)
	log.Info().Str("slug", register.Slug).Msg("slug registered in relay")

	if err := protocol.WriteServerMessage(conn, protocol.Registered{OK: true}); err != nil {
		reg.RemoveHandle(register.Slug, handle)
		handle.Close()
		return
	}

	runActive(register.Slug, conn, handle, reg)
}

// runActive starts the writer, reader and heartbeat activities and waits
// for the first one to exit, then runs Terminate.
func runActive(slug string, conn net.Conn, handle *registry.TunnelHandle, reg *registry.Registry) {
	pending := registry.NewPendingTable()
	done := make(chan struct{})

	go writerLoop(conn, handle, pending, done)
	go readerLoop(conn, slug, pending, done)
	go heartbeatLoop(slug, reg, handle, done)

	<-done

	// Terminate (spec.md §4.3 step 5). Idempotent: whichever activity
	// exited first already closed `done`; the others will be exiting too.
	reg.RemoveHandle(slug, handle)
	handle.Close()
	pending.CloseAll()
	conn.Close()
	log.Info().Str("slug", slug).Msg("slug unregistered from relay")
}

// closeOnceSignalMu serializes closeOnceSignal so concurrent callers cannot
// both observe done as open and close it twice.
var closeOnceSignalMu sync.Mutex

// closeOnceSignal closes done at most once, used by each of the three
// activities to report "I have exited" without a data race.
func closeOnceSignal(done chan struct{}) {
	closeOnceSignalMu.Lock()
	defer closeOnceSignalMu.Unlock()
	select {
	case <-done:
	default:
		close(done)
	}
}

// writerLoop drains the outbound queue and writes each message to conn.
func writerLoop(conn net.Conn, handle *registry.TunnelHandle, pending *registry.PendingTable, done chan struct{}) {
	defer closeOnceSignal(done)
	for {
		select {
		case pr, ok := <-handle.Queue:
			if !ok {
				return
			}
			if req, isRequest := pr.Msg.(protocol.Request); isRequest {
				pending.Insert(req.ID, pr.Reply)
			}
			if err := protocol.WriteServerMessage(conn, pr.Msg); err != nil {
				log.Warn().Err(err).Msg("writing frame to relay client failed")
				return
			}
		case <-done:
			return
		}
	}
}

// readerLoop reads client frames and demultiplexes Response messages to
// their pending reply channels.
func readerLoop(conn net.Conn, slug string, pending *registry.PendingTable, done chan struct{}) {
	defer closeOnceSignal(done)
	for {
		msg, err := protocol.ReadClientMessage(conn)
		if err != nil {
			log.Warn().Err(err).Str("slug", slug).Msg("relay client read error")
			return
		}
		if msg == nil {
			return // clean EOF
		}
		switch m := msg.(type) {
		case protocol.Response:
			body, err := base64.StdEncoding.DecodeString(m.BodyB64)
			if err != nil {
				body = nil // spec.md §9: decode failure is treated as empty body
			}
			pending.Resolve(m.ID, &registry.RelayResponse{Status: m.Status, Headers: m.Headers, Body: body})
		case protocol.Heartbeat:
			// keep-alive acknowledged, nothing to do
		case protocol.Register:
			log.Warn().Str("slug", slug).Msg("unexpected register from relay client — ignoring")
		}
	}
}

// heartbeatLoop enqueues a Ping every heartbeatInterval while the slug
// remains registered, exiting once it's gone.
func heartbeatLoop(slug string, reg *registry.Registry, handle *registry.TunnelHandle, done chan struct{}) {
	defer closeOnceSignal(done)
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, ok := reg.Get(slug); !ok {
				return
			}
			handle.Send(registry.NewPendingRequest(protocol.Ping{}))
		case <-done:
			return
		}
	}
}
