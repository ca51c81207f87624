package store

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/ordercast/ordercast/internal/model"
)

// state is one immutable generation of the dataset. Replace builds a
// fresh state and swaps the pointer; readers hold whatever generation
// they loaded, so a reader never observes orders from two fetch cycles.
type state struct {
	all       []model.Order          // full fetched set, timestamp-descending
	active    []model.Order          // active subset, same order
	index     map[string]model.Order // normalized id → order (full set)
	signature string                 // digest over the broadcast view
	fetchedAt time.Time
}

// Store holds the current snapshot.
type Store struct {
	// broadcastInactive widens the broadcast view (and therefore the
	// signature domain) from active-only to the full set.
	broadcastInactive bool

	cur atomic.Pointer[state]
}

// New creates an empty Store. broadcastInactive selects whether inactive
// orders participate in the broadcast view and its signature.
func New(broadcastInactive bool) *Store {
	s := &Store{broadcastInactive: broadcastInactive}
	s.cur.Store(&state{
		index:     map[string]model.Order{},
		signature: Signature(nil),
	})
	return s
}

// Replace swaps in a new dataset wholesale and reports whether the
// signature changed. The input slice is not retained.
func (s *Store) Replace(orders []model.Order) bool {
	all := make([]model.Order, len(orders))
	copy(all, orders)

	// Stable sort, id tiebreak, so identical upstream data always
	// produces the identical sequence and signature.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Timestamp != all[j].Timestamp {
			return all[i].Timestamp > all[j].Timestamp
		}
		return all[i].OrderID < all[j].OrderID
	})

	active := make([]model.Order, 0, len(all))
	index := make(map[string]model.Order, len(all))
	for _, o := range all {
		index[model.NormalizeID(o.OrderID)] = o
		if o.IsActive {
			active = append(active, o)
		}
	}

	view := active
	if s.broadcastInactive {
		view = all
	}

	next := &state{
		all:       all,
		active:    active,
		index:     index,
		signature: Signature(view),
		fetchedAt: time.Now(),
	}

	prev := s.cur.Swap(next)
	return prev.signature != next.signature
}

// Current returns the broadcast view of the most recent snapshot.
func (s *Store) Current() *model.Snapshot {
	st := s.cur.Load()
	view := st.active
	if s.broadcastInactive {
		view = st.all
	}
	return &model.Snapshot{
		Orders:    view,
		Signature: st.signature,
		FetchedAt: st.fetchedAt,
	}
}

// List returns the timestamp-descending sequence, filtered to active
// orders unless includeInactive is set.
func (s *Store) List(includeInactive bool) []model.Order {
	st := s.cur.Load()
	if includeInactive {
		return st.all
	}
	return st.active
}

// Lookup finds an order by identifier. The id is normalized before
// comparison. Inactive orders are still found by id.
func (s *Store) Lookup(id string) (model.Order, bool) {
	o, ok := s.cur.Load().index[model.NormalizeID(id)]
	return o, ok
}

// Signature returns the current snapshot's signature.
func (s *Store) Signature() string {
	return s.cur.Load().signature
}

// Seeded reports whether any dataset has been adopted since startup.
func (s *Store) Seeded() bool {
	return !s.cur.Load().fetchedAt.IsZero()
}

// Len returns the size of the full current dataset.
func (s *Store) Len() int {
	return len(s.cur.Load().all)
}

// FetchedAt returns when the current snapshot was adopted, zero if the
// store is still empty.
func (s *Store) FetchedAt() time.Time {
	return s.cur.Load().fetchedAt
}
