// Package registry holds the slug → tunnel handle map (C2) and the shared
// request/response plumbing types a server tunnel session uses to correlate
// an HTTP ingress request with its eventual relay client response.
package registry

import "github.com/nexusnode/relay/internal/protocol"

// outboundQueueCapacity bounds a tunnel's outbound message queue, per spec.md §3.
const outboundQueueCapacity = 64

// RelayResponse is the decoded form of a relay client's Response message.
type RelayResponse struct {
	Status  uint16
	Headers map[string]string
	Body    []byte
}

// PendingRequest pairs a server→client message with the single-shot channel
// that will carry the eventual RelayResponse back to the HTTP ingress
// handler that issued it. For Ping messages Reply is a throwaway channel
// that may be left unread.
type PendingRequest struct {
	Msg   protocol.ServerMessage
	Reply chan *RelayResponse
}

// NewPendingRequest builds a PendingRequest with a fresh single-shot reply channel.
func NewPendingRequest(msg protocol.ServerMessage) *PendingRequest {
	return &PendingRequest{Msg: msg, Reply: make(chan *RelayResponse, 1)}
}

// TunnelHandle is a producer endpoint addressing one live session's outbound
// queue. It is a thin value type — cheap to copy, and every copy shares the
// same underlying channel and done signal.
type TunnelHandle struct {
	Slug  string
	Queue chan *PendingRequest
	done  chan struct{}
}

// NewTunnelHandle allocates a bounded outbound queue for a newly bound session.
func NewTunnelHandle(slug string) *TunnelHandle {
	return &TunnelHandle{
		Slug:  slug,
		Queue: make(chan *PendingRequest, outboundQueueCapacity),
		done:  make(chan struct{}),
	}
}

// Send enqueues a pending request. It returns false if the session has torn
// down in the meantime, in which case the caller should treat the tunnel as
// unavailable rather than block forever.
func (h *TunnelHandle) Send(pr *PendingRequest) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.Queue <- pr:
		return true
	case <-h.done:
		return false
	}
}

// Closed reports whether the owning session has torn down.
func (h *TunnelHandle) Closed() <-chan struct{} {
	return h.done
}

// Close marks the handle dead. Safe to call at most once; the owning
// session is the only caller, from its Terminate step or when writing the
// Registered reply fails.
func (h *TunnelHandle) Close() {
	close(h.done)
}
