package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/ordercast/ordercast/internal/model"
)

func order(id string, ts int64, active bool) model.Order {
	return model.Order{OrderID: id, IsActive: active, Timestamp: ts}
}

func TestSignature_Deterministic(t *testing.T) {
	a := []model.Order{order("ORD-0001", 100, true), order("ORD-0002", 200, true)}
	b := []model.Order{order("ORD-0001", 100, true), order("ORD-0002", 200, true)}

	if Signature(a) != Signature(b) {
		t.Error("identical sequences produced different signatures")
	}
}

func TestSignature_TimestampChange(t *testing.T) {
	a := []model.Order{order("ORD-0001", 100, true)}
	b := []model.Order{order("ORD-0001", 200, true)}

	if Signature(a) == Signature(b) {
		t.Error("timestamp change did not change signature")
	}
}

func TestSignature_FieldSeparation(t *testing.T) {
	// "AB" + ts and "A" + different id must not collide.
	a := []model.Order{order("AB", 1, true)}
	b := []model.Order{order("A", 1, true), order("B", 1, true)}

	if Signature(a) == Signature(b) {
		t.Error("separator collision between distinct sequences")
	}
}

func TestStore_ReplaceReportsChange(t *testing.T) {
	s := New(false)

	if !s.Replace([]model.Order{order("ORD-0001", 100, true)}) {
		t.Error("first replace on empty store should report change")
	}
	if s.Replace([]model.Order{order("ORD-0001", 100, true)}) {
		t.Error("identical data should not report change")
	}
	if !s.Replace([]model.Order{order("ORD-0001", 200, true)}) {
		t.Error("bumped timestamp should report change")
	}
}

func TestStore_PayloadEditIsNotAChange(t *testing.T) {
	s := New(false)
	s.Replace([]model.Order{order("ORD-0001", 100, true)})

	edited := order("ORD-0001", 100, true)
	edited.Payload = map[string]json.RawMessage{
		"customer": json.RawMessage(`"Renamed Customer"`),
	}
	if s.Replace([]model.Order{edited}) {
		t.Error("payload-only difference must not change the signature")
	}
}

func TestStore_SortOrder(t *testing.T) {
	s := New(false)
	s.Replace([]model.Order{
		order("ORD-0001", 100, true),
		order("ORD-0003", 300, true),
		order("ORD-0002", 200, true),
	})

	got := s.List(false)
	want := []string{"ORD-0003", "ORD-0002", "ORD-0001"}
	for i, id := range want {
		if got[i].OrderID != id {
			t.Fatalf("List()[%d] = %s, want %s (timestamp-descending)", i, got[i].OrderID, id)
		}
	}
}

func TestStore_InputOrderIrrelevant(t *testing.T) {
	a := New(false)
	a.Replace([]model.Order{order("ORD-0001", 100, true), order("ORD-0002", 200, true)})

	b := New(false)
	b.Replace([]model.Order{order("ORD-0002", 200, true), order("ORD-0001", 100, true)})

	if a.Signature() != b.Signature() {
		t.Error("upstream ordering differences must not affect the signature")
	}
}

func TestStore_ActiveFiltering(t *testing.T) {
	s := New(false)
	s.Replace([]model.Order{
		order("ORD-0001", 100, true),
		order("ORD-0002", 200, false),
	})

	if got := len(s.List(false)); got != 1 {
		t.Errorf("active list length = %d, want 1", got)
	}
	if got := len(s.List(true)); got != 2 {
		t.Errorf("full list length = %d, want 2", got)
	}
	if got := len(s.Current().Orders); got != 1 {
		t.Errorf("broadcast view length = %d, want 1", got)
	}

	// Inactive orders are still reachable by id.
	if _, ok := s.Lookup("ORD-0002"); !ok {
		t.Error("inactive order not found by id")
	}
}

func TestStore_DeactivationChangesSignature(t *testing.T) {
	s := New(false)
	s.Replace([]model.Order{order("ORD-0001", 100, true)})

	// Same timestamp, but the order leaves the active view.
	if !s.Replace([]model.Order{order("ORD-0001", 100, false)}) {
		t.Error("deactivation should change the broadcast signature")
	}
}

func TestStore_BroadcastInactive(t *testing.T) {
	s := New(true)
	s.Replace([]model.Order{
		order("ORD-0001", 100, true),
		order("ORD-0002", 200, false),
	})

	if got := len(s.Current().Orders); got != 2 {
		t.Errorf("broadcast view length = %d, want 2 with broadcastInactive", got)
	}

	// With the full set in the signature domain, flipping is_active alone
	// does not move the (id, timestamp) pairs.
	if s.Replace([]model.Order{
		order("ORD-0001", 100, false),
		order("ORD-0002", 200, true),
	}) {
		t.Error("is_active flip without timestamp bump should not change full-set signature")
	}
}

func TestStore_LookupNormalizesID(t *testing.T) {
	s := New(false)
	s.Replace([]model.Order{order("ORD-0001", 100, true)})

	for _, id := range []string{"ORD-0001", "ord-0001", " Ord-0001 "} {
		if _, ok := s.Lookup(id); !ok {
			t.Errorf("Lookup(%q) missed", id)
		}
	}
	if _, ok := s.Lookup("ORD-9999"); ok {
		t.Error("Lookup of unknown id should miss")
	}
}

func TestStore_EmptyAtStartup(t *testing.T) {
	s := New(false)

	if s.Seeded() {
		t.Error("new store should not be seeded")
	}
	if got := len(s.Current().Orders); got != 0 {
		t.Errorf("empty store broadcast view length = %d, want 0", got)
	}
	if _, ok := s.Lookup("ANYTHING"); ok {
		t.Error("empty store lookup should miss")
	}

	s.Replace(nil)
	if !s.Seeded() {
		t.Error("store should be seeded after first replace, even with no orders")
	}
}

func TestStore_ConcurrentReadersSeeOneGeneration(t *testing.T) {
	s := New(false)

	// Writer swaps between two generations whose orders encode the
	// generation in every timestamp; a mixed view would show both.
	gen := func(n int64) []model.Order {
		orders := make([]model.Order, 50)
		for i := range orders {
			orders[i] = order(fmt.Sprintf("ORD-%04d", i), n, true)
		}
		return orders
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := int64(1); i <= 200; i++ {
			s.Replace(gen(i))
		}
	}()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				orders := s.List(false)
				for _, o := range orders {
					if o.Timestamp != orders[0].Timestamp {
						t.Error("reader observed orders from two generations")
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
