package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ordercast/ordercast/internal/model"
	"github.com/ordercast/ordercast/internal/source"
	"github.com/ordercast/ordercast/internal/store"
)

// upstreamStub serves a swappable orders payload.
type upstreamStub struct {
	mu     sync.Mutex
	body   string
	status int
	calls  atomic.Int32
}

func (u *upstreamStub) set(body string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.body = body
	u.status = status
}

func (u *upstreamStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.mu.Lock()
		body, status := u.body, u.status
		u.mu.Unlock()
		if status >= 400 {
			http.Error(w, "upstream down", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func newTestPoller(t *testing.T, url string, handler ChangeHandler) (*Poller, *store.Store) {
	t.Helper()
	st := store.New(false)
	src := source.NewHTTPProvider(url, source.WithRetries(0, time.Millisecond))
	p := New(Config{Interval: time.Hour, Timeout: 2 * time.Second}, src, st, handler, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	t.Cleanup(p.cancel)
	return p, st
}

func TestPoller_SeedsSilentlyThenBroadcastsChanges(t *testing.T) {
	stub := &upstreamStub{}
	stub.set(`[{"order_id":"ORD-0001","is_active":true,"timestamp":100}]`, 0)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	var broadcasts atomic.Int32
	var lastSnap atomic.Pointer[model.Snapshot]
	handler := ChangeHandlerFunc(func(s *model.Snapshot) {
		broadcasts.Add(1)
		lastSnap.Store(s)
	})

	p, st := newTestPoller(t, server.URL, handler)

	// First fetch seeds without broadcasting.
	p.pollOnce()
	if got := broadcasts.Load(); got != 0 {
		t.Fatalf("broadcasts after seed = %d, want 0", got)
	}
	if !st.Seeded() || st.Len() != 1 {
		t.Fatalf("store not seeded: seeded=%v len=%d", st.Seeded(), st.Len())
	}

	// Same data: no broadcast.
	p.pollOnce()
	if got := broadcasts.Load(); got != 0 {
		t.Fatalf("broadcasts after identical poll = %d, want 0", got)
	}

	// Timestamp bump: exactly one broadcast with the full new active set.
	stub.set(`[{"order_id":"ORD-0001","is_active":true,"timestamp":200}]`, 0)
	p.pollOnce()
	if got := broadcasts.Load(); got != 1 {
		t.Fatalf("broadcasts after change = %d, want 1", got)
	}
	snap := lastSnap.Load()
	if len(snap.Orders) != 1 || snap.Orders[0].Timestamp != 200*1_000_000 {
		t.Errorf("broadcast snapshot = %+v", snap.Orders)
	}
}

func TestPoller_FailureKeepsPreviousSnapshot(t *testing.T) {
	stub := &upstreamStub{}
	stub.set(`[{"order_id":"ORD-0001","is_active":true,"timestamp":200}]`, 0)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	var broadcasts atomic.Int32
	handler := ChangeHandlerFunc(func(s *model.Snapshot) { broadcasts.Add(1) })

	p, st := newTestPoller(t, server.URL, handler)
	p.pollOnce()

	// Upstream starts failing: no broadcast, store untouched.
	stub.set("", http.StatusInternalServerError)
	p.pollOnce()

	if got := broadcasts.Load(); got != 0 {
		t.Errorf("broadcasts = %d, want 0", got)
	}
	o, ok := st.Lookup("ORD-0001")
	if !ok || o.Timestamp != 200*1_000_000 {
		t.Errorf("previous snapshot lost after failed cycle: %+v ok=%v", o, ok)
	}

	// Recovery works on the next cycle.
	stub.set(`[{"order_id":"ORD-0001","is_active":true,"timestamp":300}]`, 0)
	p.pollOnce()
	if got := broadcasts.Load(); got != 1 {
		t.Errorf("broadcasts after recovery = %d, want 1", got)
	}
}

func TestPoller_MalformedPayloadContained(t *testing.T) {
	stub := &upstreamStub{}
	stub.set(`[{"order_id":"ORD-0001","is_active":true,"timestamp":100}]`, 0)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	p, st := newTestPoller(t, server.URL, nil)
	p.pollOnce()
	sig := st.Signature()

	stub.set(`{"error":"quota exceeded"}`, 0)
	p.pollOnce()

	if st.Signature() != sig {
		t.Error("malformed payload mutated the store")
	}
}

func TestPoller_SingleFlight(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		json.NewEncoder(w).Encode([]model.Order{})
	}))
	defer server.Close()

	p, _ := newTestPoller(t, server.URL, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.pollOnce() // occupies the cycle until block closes
	}()

	// Give the first cycle time to take the guard.
	time.Sleep(50 * time.Millisecond)

	// Overlapping ticks are skipped, not queued.
	p.pollOnce()
	p.pollOnce()

	close(block)
	wg.Wait()

	if got := p.cycles.Load(); got != 1 {
		t.Errorf("completed cycles = %d, want 1 (overlapping ticks skipped)", got)
	}
}

func TestPoller_StartStop(t *testing.T) {
	stub := &upstreamStub{}
	stub.set(`[]`, 0)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	st := store.New(false)
	src := source.NewHTTPProvider(server.URL, source.WithRetries(0, time.Millisecond))
	p := New(Config{Interval: 50 * time.Millisecond, Timeout: time.Second}, src, st, nil, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for the immediate poll plus at least one tick.
	time.Sleep(120 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if stub.calls.Load() < 2 {
		t.Errorf("upstream calls = %d, want >= 2", stub.calls.Load())
	}
	if !st.Seeded() {
		t.Error("store not seeded after run")
	}
}

// Full cycle walk: seed, no-op poll, change, upstream timeout, then
// lookups against the surviving snapshot.
func TestPoller_EndToEndScenario(t *testing.T) {
	stub := &upstreamStub{}
	stub.set(`[{"order_id":"ORD-0001","is_active":true,"timestamp":100}]`, 0)
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	var broadcasts atomic.Int32
	handler := ChangeHandlerFunc(func(s *model.Snapshot) { broadcasts.Add(1) })

	p, st := newTestPoller(t, server.URL, handler)

	p.pollOnce() // seed
	p.pollOnce() // unchanged → no broadcast
	if got := broadcasts.Load(); got != 0 {
		t.Fatalf("broadcasts = %d, want 0", got)
	}

	stub.set(`[{"order_id":"ORD-0001","is_active":true,"timestamp":200}]`, 0)
	p.pollOnce() // change → one broadcast
	if got := broadcasts.Load(); got != 1 {
		t.Fatalf("broadcasts = %d, want 1", got)
	}

	// Upstream hangs past the cycle deadline: no broadcast, no mutation.
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer slow.Close()
	defer close(release)

	p.src = source.NewHTTPProvider(slow.URL, source.WithRetries(0, time.Millisecond))
	p.cfg.Timeout = 50 * time.Millisecond
	p.pollOnce()

	if got := broadcasts.Load(); got != 1 {
		t.Errorf("broadcasts after timeout = %d, want still 1", got)
	}
	o, ok := st.Lookup("ORD-0001")
	if !ok || o.Timestamp != 200*1_000_000 {
		t.Errorf("findOrder(ORD-0001) = %+v ok=%v, want ts:200s record", o, ok)
	}
	if _, ok := st.Lookup("ORD-9999"); ok {
		t.Error("findOrder(ORD-9999) should miss")
	}
}
