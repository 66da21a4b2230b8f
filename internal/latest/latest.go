// Package latest makes sure only the most recent fetch per key is used.
// Starting a fetch cancels the previous one for the same key.
package latest

import (
	"context"
	"sync"
)

// Tracker tracks the in-flight fetch per key.
type Tracker struct {
	mu       sync.Mutex
	inflight map[string]*Ticket
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{inflight: make(map[string]*Ticket)}
}

// Ticket represents one fetch started with Begin.
type Ticket struct {
	t      *Tracker
	key    string
	cancel context.CancelFunc
}

// Begin starts a fetch for key and cancels the previous fetch for the same
// key, if any. The returned context must be used for the fetch. An empty key
// is not tracked and its ticket is always current.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(ctx)
	tk := &Ticket{t: t, key: key, cancel: cancel}
	if key == "" {
		return ctx, tk
	}

	t.mu.Lock()
	prev := t.inflight[key]
	t.inflight[key] = tk
	t.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	return ctx, tk
}

// Current reports whether no newer fetch for the key has begun.
func (tk *Ticket) Current() bool {
	if tk.key == "" {
		return true
	}
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	return tk.t.inflight[tk.key] == tk
}

// Done releases the ticket. It must be called once the fetch has finished.
func (tk *Ticket) Done() {
	if tk.key != "" {
		tk.t.mu.Lock()
		if tk.t.inflight[tk.key] == tk {
			delete(tk.t.inflight, tk.key)
		}
		tk.t.mu.Unlock()
	}
	tk.cancel()
}

// Len returns the number of keys with a fetch in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
