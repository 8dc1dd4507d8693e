package registry

import "testing"

func Test_insert_resolve(t *testing.T) {
	pt := NewPendingTable()
	reply := make(chan *RelayResponse, 1)
	pt.Insert("req-1", reply)

	resp := &RelayResponse{Status: 200}
	if ok := pt.Resolve("req-1", resp); !ok {
		t.Fatal("expected resolve to find the entry")
	}

	got := <-reply
	if got != resp {
		t.Errorf("got %#v, want %#v", got, resp)
	}
}

func Test_resolve_unknown_id_is_silently_dropped(t *testing.T) {
	pt := NewPendingTable()
	if ok := pt.Resolve("ghost", &RelayResponse{Status: 200}); ok {
		t.Fatal("expected resolve of unknown id to report false")
	}
}

func Test_drop_then_resolve_is_noop(t *testing.T) {
	pt := NewPendingTable()
	reply := make(chan *RelayResponse, 1)
	pt.Insert("req-1", reply)
	pt.Drop("req-1")

	if ok := pt.Resolve("req-1", &RelayResponse{Status: 200}); ok {
		t.Fatal("expected resolve after drop to report false")
	}
}

func Test_close_all_wakes_waiters(t *testing.T) {
	pt := NewPendingTable()
	replyA := make(chan *RelayResponse, 1)
	replyB := make(chan *RelayResponse, 1)
	pt.Insert("a", replyA)
	pt.Insert("b", replyB)

	pt.CloseAll()

	if _, ok := <-replyA; ok {
		t.Error("expected replyA to be closed with no value")
	}
	if _, ok := <-replyB; ok {
		t.Error("expected replyB to be closed with no value")
	}
}
