package relay

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/nexusnode/relay/internal/directory"
	"github.com/nexusnode/relay/internal/hopbyhop"
	"github.com/nexusnode/relay/internal/protocol"
	"github.com/nexusnode/relay/internal/registry"
)

// replyTimeout bounds how long the HTTP ingress waits for a relay client's
// Response before giving up, per spec.md §4.4.
const replyTimeout = 10 * time.Second

// Ingress is the public HTTP entry point (C4): it extracts a slug from the
// Host header and either proxies through a live tunnel, redirects to a
// directory-recorded URL, or answers 404/302 for the apex.
type Ingress struct {
	registry *registry.Registry
	dir      directory.Store
	apex     string
	mainSlug string
}

// NewIngress builds the ingress handler. apexURL is the bare domain the main
// slug's fallback redirects to (e.g. "https://nexusnode.app").
func NewIngress(reg *registry.Registry, dir directory.Store, mainSlug, apexURL string) *Ingress {
	return &Ingress{registry: reg, dir: dir, apex: apexURL, mainSlug: mainSlug}
}

// Router builds the gorilla/mux router: a catch-all for tunnel dispatch plus
// a /healthz endpoint for process supervisors.
func (in *Ingress) Router(apexSuffix string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", in.handleHealthz).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in.handleRequest(w, r, apexSuffix)
	})
	return r
}

func (in *Ingress) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"registered_slugs": in.registry.Size()})
}

// handleRequest implements the dispatch table in spec.md §4.4 step 2.
func (in *Ingress) handleRequest(w http.ResponseWriter, r *http.Request, apexSuffix string) {
	slug, hasSlug := ExtractSlug(r.Host, apexSuffix)

	if !hasSlug || slug == in.mainSlug {
		http.Redirect(w, r, in.apex, http.StatusFound)
		return
	}

	if handle, ok := in.registry.Get(slug); ok {
		in.proxyThroughTunnel(w, r, slug, handle)
		return
	}

	url, ok, err := in.dir.RedirectURL(r.Context(), slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("directory redirect lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if ok {
		http.Redirect(w, r, joinURL(url, r.URL.RequestURI()), http.StatusFound)
		return
	}

	http.NotFound(w, r)
}

// ExtractSlug implements spec.md §4.4 step 1 and the boundary cases in §8:
// "x.nexusnode.app" → "x"; "x.y.nexusnode.app" → none (dot in prefix);
// "nexusnode.app" → none (empty prefix); port suffixes are stripped first.
func ExtractSlug(host, apexSuffix string) (slug string, ok bool) {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	if !strings.HasSuffix(host, apexSuffix) {
		return "", false
	}
	prefix := strings.TrimSuffix(host, apexSuffix)
	if prefix == "" || strings.Contains(prefix, ".") {
		return "", false
	}
	return prefix, true
}

func joinURL(base, requestURI string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(requestURI, "/")
}

// proxyThroughTunnel implements spec.md §4.4 step 3.
func (in *Ingress) proxyThroughTunnel(w http.ResponseWriter, r *http.Request, slug string, handle *registry.TunnelHandle) {
	id := uuid.NewString()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}

	req := protocol.Request{
		ID:      id,
		Method:  r.Method,
		Path:    r.URL.RequestURI(),
		Headers: hopbyhop.Filter(r.Header),
		BodyB64: base64.StdEncoding.EncodeToString(body),
	}

	pr := registry.NewPendingRequest(req)
	if !handle.Send(pr) {
		http.Error(w, "Relay for '"+slug+"' is unavailable", http.StatusServiceUnavailable)
		return
	}

	select {
	case resp, ok := <-pr.Reply:
		if !ok || resp == nil {
			http.Error(w, "Relay client did not respond in time", http.StatusGatewayTimeout)
			return
		}
		writeRelayResponse(w, resp)
	case <-time.After(replyTimeout):
		http.Error(w, "Relay client did not respond in time", http.StatusGatewayTimeout)
	}
}

func writeRelayResponse(w http.ResponseWriter, resp *registry.RelayResponse) {
	for k, v := range resp.Headers {
		if hopbyhop.Is(k) {
			continue
		}
		w.Header().Set(k, v)
	}
	status := int(resp.Status)
	if status < 100 || status > 599 {
		status = http.StatusBadGateway
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
