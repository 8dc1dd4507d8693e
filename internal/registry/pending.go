package registry

import "sync"

// PendingTable is a per-session map of in-flight correlation ids to their
// awaiting reply channels. An id is inserted strictly before the
// corresponding Request frame is written, and removed atomically when the
// matching Response is demultiplexed. Remaining entries are closed (rather
// than deleted silently) when the session tears down, so any ingress
// handler still waiting observes a failure instead of blocking forever.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]chan *RelayResponse
}

// NewPendingTable creates an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[string]chan *RelayResponse)}
}

// Insert registers a reply channel under id, replacing any prior entry.
func (t *PendingTable) Insert(id string, reply chan *RelayResponse) {
	t.mu.Lock()
	t.entries[id] = reply
	t.mu.Unlock()
}

// Resolve removes the entry for id and delivers resp to it. If no entry
// exists (a late response for a forgotten id), it is dropped silently and
// Resolve reports false.
func (t *PendingTable) Resolve(id string, resp *RelayResponse) bool {
	t.mu.Lock()
	reply, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	reply <- resp
	return true
}

// Drop removes and discards the entry for id, e.g. when its ingress waiter
// gave up (timeout). The channel is left for the garbage collector; any
// response that later arrives for this id will find no entry and be
// dropped by Resolve.
func (t *PendingTable) Drop(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// CloseAll closes every remaining reply channel, waking any ingress handler
// still waiting on it with a zero-value receive. Called once, at session
// teardown.
func (t *PendingTable) CloseAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, reply := range t.entries {
		close(reply)
		delete(t.entries, id)
	}
}
