package latest

import (
	"context"
	"sync"
	"testing"
)

func TestNewerFetchCancelsOlder(t *testing.T) {
	tr := New()
	ctx1, first := tr.Begin(context.Background(), "a")
	ctx2, second := tr.Begin(context.Background(), "a")

	if ctx1.Err() != context.Canceled {
		t.Errorf("first fetch should be canceled, got %v", ctx1.Err())
	}
	if first.Current() {
		t.Error("first ticket should be superseded")
	}
	if ctx2.Err() != nil || !second.Current() {
		t.Error("second ticket should be current")
	}

	// Finishing the stale fetch must not release the newer one.
	first.Done()
	if !second.Current() || tr.Len() != 1 {
		t.Error("stale Done released the current ticket")
	}
	second.Done()
	if tr.Len() != 0 {
		t.Errorf("expected no in-flight keys, got %d", tr.Len())
	}
	if ctx2.Err() == nil {
		t.Error("Done should cancel the context")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	tr := New()
	ctxA, a := tr.Begin(context.Background(), "a")
	_, b := tr.Begin(context.Background(), "b")
	defer a.Done()
	defer b.Done()

	if ctxA.Err() != nil || !a.Current() || !b.Current() {
		t.Error("fetches for different keys should not interfere")
	}
}

func TestEmptyKeyUntracked(t *testing.T) {
	tr := New()
	ctx1, first := tr.Begin(context.Background(), "")
	_, second := tr.Begin(context.Background(), "")
	defer second.Done()

	if ctx1.Err() != nil || !first.Current() {
		t.Error("untracked fetches should never be superseded")
	}
	if tr.Len() != 0 {
		t.Error("empty key should not be tracked")
	}
	first.Done()
}

func TestOnlyLastOfManyIsCurrent(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	tickets := make(chan *Ticket, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, tk := tr.Begin(context.Background(), "k")
			tickets <- tk
		}()
	}
	wg.Wait()
	close(tickets)

	current := 0
	for tk := range tickets {
		if tk.Current() {
			current++
		}
	}
	if current != 1 {
		t.Errorf("expected exactly one current ticket, got %d", current)
	}
}
