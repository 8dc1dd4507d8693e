package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexusnode/relay/internal/registry"
)

// fakeDirStore is a tiny in-memory directory.Store used only by relay tests.
type fakeDirStore struct {
	redirects map[string]string
}

func (f *fakeDirStore) Lookup(context.Context, string, string) (bool, error) { return false, nil }

func (f *fakeDirStore) RedirectURL(_ context.Context, slug string) (string, bool, error) {
	url, ok := f.redirects[slug]
	return url, ok, nil
}

func Test_extract_slug_boundary_cases(t *testing.T) {
	cases := []struct {
		host     string
		wantSlug string
		wantOK   bool
	}{
		{"x.nexusnode.app", "x", true},
		{"x.y.nexusnode.app", "", false},
		{"nexusnode.app", "", false},
		{"X.NexusNode.App:8080", "x", true},
	}
	for _, c := range cases {
		slug, ok := ExtractSlug(c.host, ".nexusnode.app")
		if ok != c.wantOK || slug != c.wantSlug {
			t.Errorf("ExtractSlug(%q) = (%q, %v), want (%q, %v)", c.host, slug, ok, c.wantSlug, c.wantOK)
		}
	}
}

func Test_ingress_redirects_no_slug_to_apex(t *testing.T) {
	in := NewIngress(registry.New(), &fakeDirStore{}, "nexusnode", "https://nexusnode.app")
	req := httptest.NewRequest(http.MethodGet, "http://nexusnode.app/", nil)
	w := httptest.NewRecorder()

	in.handleRequest(w, req, ".nexusnode.app")

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "https://nexusnode.app" {
		t.Errorf("got location %q", got)
	}
}

func Test_ingress_redirects_main_slug_to_apex(t *testing.T) {
	in := NewIngress(registry.New(), &fakeDirStore{}, "nexusnode", "https://nexusnode.app")
	req := httptest.NewRequest(http.MethodGet, "http://nexusnode.nexusnode.app/", nil)
	w := httptest.NewRecorder()

	in.handleRequest(w, req, ".nexusnode.app")

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
}

func Test_ingress_redirects_unknown_slug_with_directory_entry(t *testing.T) {
	in := NewIngress(registry.New(), &fakeDirStore{redirects: map[string]string{"gone": "https://elsewhere.example"}}, "nexusnode", "https://nexusnode.app")
	req := httptest.NewRequest(http.MethodGet, "http://gone.nexusnode.app/path?x=1", nil)
	w := httptest.NewRecorder()

	in.handleRequest(w, req, ".nexusnode.app")

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "https://elsewhere.example/path?x=1" {
		t.Errorf("got location %q", got)
	}
}

func Test_ingress_404s_unknown_slug(t *testing.T) {
	in := NewIngress(registry.New(), &fakeDirStore{}, "nexusnode", "https://nexusnode.app")
	req := httptest.NewRequest(http.MethodGet, "http://ghost.nexusnode.app/", nil)
	w := httptest.NewRecorder()

	in.handleRequest(w, req, ".nexusnode.app")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func Test_ingress_503s_when_tunnel_closed(t *testing.T) {
	reg := registry.New()
	handle := registry.NewTunnelHandle("demo")
	reg.Insert("demo", handle)
	handle.Close() // session already torn down; Send will fail

	in := NewIngress(reg, &fakeDirStore{}, "nexusnode", "https://nexusnode.app")
	req := httptest.NewRequest(http.MethodGet, "http://demo.nexusnode.app/hi", nil)
	w := httptest.NewRecorder()

	in.handleRequest(w, req, ".nexusnode.app")

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func Test_ingress_504s_when_reply_channel_closes_before_response(t *testing.T) {
	reg := registry.New()
	handle := registry.NewTunnelHandle("demo")
	reg.Insert("demo", handle)

	// Simulate the session tearing down mid-request: whoever dequeues the
	// PendingRequest closes its reply channel instead of resolving it,
	// the same way PendingTable.CloseAll does on session teardown.
	go func() {
		pr := <-handle.Queue
		close(pr.Reply)
	}()

	in := NewIngress(reg, &fakeDirStore{}, "nexusnode", "https://nexusnode.app")
	req := httptest.NewRequest(http.MethodGet, "http://demo.nexusnode.app/hi", nil)
	w := httptest.NewRecorder()

	in.handleRequest(w, req, ".nexusnode.app")

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", w.Code)
	}
}
