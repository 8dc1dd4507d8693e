package registry

import "testing"

func Test_insert_get_contains(t *testing.T) {
	r := New()
	h := NewTunnelHandle("demo")
	r.Insert("demo", h)

	if !r.Contains("demo") {
		t.Fatal("expected registry to contain 'demo'")
	}
	got, ok := r.Get("demo")
	if !ok || got != h {
		t.Fatalf("expected to get back the same handle, got %#v ok=%v", got, ok)
	}
}

func Test_insert_replaces_prior_handle(t *testing.T) {
	r := New()
	old := NewTunnelHandle("demo")
	r.Insert("demo", old)

	fresh := NewTunnelHandle("demo")
	r.Insert("demo", fresh)

	got, ok := r.Get("demo")
	if !ok || got != fresh {
		t.Fatalf("expected the newer handle, got %#v", got)
	}
}

func Test_remove_is_idempotent(t *testing.T) {
	r := New()
	r.Insert("demo", NewTunnelHandle("demo"))
	r.Remove("demo")
	r.Remove("demo")

	if r.Contains("demo") {
		t.Fatal("expected 'demo' to be gone")
	}
}

func Test_remove_handle_only_removes_matching_handle(t *testing.T) {
	r := New()
	old := NewTunnelHandle("demo")
	r.Insert("demo", old)

	fresh := NewTunnelHandle("demo")
	r.Insert("demo", fresh)

	// a stale session finishing its teardown must not evict the newer handle
	r.RemoveHandle("demo", old)

	got, ok := r.Get("demo")
	if !ok || got != fresh {
		t.Fatalf("expected the newer handle to survive, got %#v ok=%v", got, ok)
	}
}

func Test_get_missing_slug(t *testing.T) {
	r := New()
	_, ok := r.Get("nope")
	if ok {
		t.Fatal("expected no handle for unregistered slug")
	}
}

func Test_size(t *testing.T) {
	r := New()
	if r.Size() != 0 {
		t.Fatalf("expected 0, got %d", r.Size())
	}
	r.Insert("a", NewTunnelHandle("a"))
	r.Insert("b", NewTunnelHandle("b"))
	if r.Size() != 2 {
		t.Fatalf("expected 2, got %d", r.Size())
	}
}
