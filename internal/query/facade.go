// Package query is the synchronous read path over the snapshot store,
// shared by the HTTP surface and subscriber filter requests. It never
// touches the upstream source.
package query

import (
	"errors"

	"github.com/ordercast/ordercast/internal/model"
	"github.com/ordercast/ordercast/internal/store"
)

// ErrNotFound is a normal outcome: no order with the given id exists in
// the current snapshot.
var ErrNotFound = errors.New("order not found")

// ErrInvalidID means the identifier was missing or empty.
var ErrInvalidID = errors.New("order_id is required")

// Facade answers list and point-lookup queries against the store.
type Facade struct {
	store *store.Store
}

// NewFacade creates a Facade over the given store.
func NewFacade(st *store.Store) *Facade {
	return &Facade{store: st}
}

// ListOrders returns the timestamp-descending sequence, active-only by
// default.
func (f *Facade) ListOrders(includeInactive bool) []model.Order {
	return f.store.List(includeInactive)
}

// FindOrder returns the single matching order. The identifier is
// normalized before comparison to match heterogeneous upstream
// encodings.
func (f *Facade) FindOrder(id string) (model.Order, error) {
	if model.NormalizeID(id) == "" {
		return model.Order{}, ErrInvalidID
	}
	o, ok := f.store.Lookup(id)
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}
