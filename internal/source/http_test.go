package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPProvider_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"order_id":"ORD-0001","is_active":true,"timestamp":100}]`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL)

	orders, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != "ORD-0001" {
		t.Errorf("orders = %+v", orders)
	}
}

func TestHTTPProvider_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!doctype html><html>sign-in required</html>`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, WithRetries(0, time.Millisecond))

	_, err := p.Fetch(context.Background())
	if !IsMalformed(err) {
		t.Errorf("err = %v, want malformed", err)
	}
}

func TestHTTPProvider_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, WithRetries(0, time.Millisecond))

	_, err := p.Fetch(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("err = %v, want unavailable", err)
	}
}

func TestHTTPProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	p := NewHTTPProvider(server.URL, WithRetries(0, time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Fetch(ctx)
	if !IsTimeout(err) {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestHTTPProvider_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, WithRetries(3, time.Millisecond))

	if _, err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch should succeed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream called %d times, want 3", got)
	}
}

func TestHTTPProvider_DoesNotRetryMalformed(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{`))
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL, WithRetries(3, time.Millisecond))

	if _, err := p.Fetch(context.Background()); !IsMalformed(err) {
		t.Fatalf("err = %v, want malformed", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want 1", got)
	}
}
