package relay

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nexusnode/relay/internal/directory"
	"github.com/nexusnode/relay/internal/registry"
)

// apexSuffix is the parent domain suffix under which slugs live.
const apexSuffix = ".nexusnode.app"

// apexURL is the fallback redirect target for the main slug and for hosts
// with no slug at all. spec.md §9 flags this as underspecified in the
// source; the original implementation (nexus-p2p) hardcodes it, and this
// keeps that literal behavior.
const apexURL = "https://nexusnode.app"

// Config holds everything the server needs to start, gathered from CLI
// flags/env by the server command in cmd/nexusnode-relay (spec.md §6 CLI
// surface).
type Config struct {
	TCPPort     uint16
	HTTPPort    uint16
	DatabaseURL string
	MainSlug    string
}

// Server runs the TCP tunnel listener (C3's accept loop) and the HTTP
// ingress (C4) concurrently, the way the original implementation's
// tokio::try_join! does: a failure on either side brings down both.
type Server struct {
	cfg      Config
	registry *registry.Registry
	dir      *directory.SQLStore
}

// NewServer connects to the directory database and builds a Server.
func NewServer(cfg Config) (*Server, error) {
	dir, err := directory.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, registry: registry.New(), dir: dir}, nil
}

// Run binds both listeners and blocks until ctx is canceled or either
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.dir.Close()

	log.Info().
		Uint16("tcp_port", s.cfg.TCPPort).
		Uint16("http_port", s.cfg.HTTPPort).
		Str("main_slug", s.cfg.MainSlug).
		Msg("starting nexusnode-relay server")

	tcpAddr := fmt.Sprintf("0.0.0.0:%d", s.cfg.TCPPort)
	tcpListener, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("relay: binding tcp listener on %s: %w", tcpAddr, err)
	}
	log.Info().Str("addr", tcpAddr).Msg("tcp relay listener bound")

	httpAddr := fmt.Sprintf("127.0.0.1:%d", s.cfg.HTTPPort)
	ingress := NewIngress(s.registry, s.dir, s.cfg.MainSlug, apexURL)
	httpServer := &http.Server{Addr: httpAddr, Handler: ingress.Router(apexSuffix)}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.runTCPListener(groupCtx, tcpListener)
	})
	group.Go(func() error {
		log.Info().Str("addr", httpAddr).Msg("http ingress listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("relay: http ingress: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		tcpListener.Close()
		return httpServer.Close()
	})

	return group.Wait()
}

func (s *Server) runTCPListener(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("relay: accepting tcp connection: %w", err)
			}
		}
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("relay client connected")
		go acceptConnection(ctx, conn, s.registry, s.dir)
	}
}
