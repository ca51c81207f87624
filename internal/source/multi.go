package source

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ordercast/ordercast/internal/model"
)

// MultiProvider fans in over several providers concurrently and
// concatenates their results in configured provider order, so the
// combined sequence is deterministic regardless of which upstream
// answers first.
type MultiProvider struct {
	providers []Provider
}

// NewMultiProvider combines providers. With a single provider the
// provider itself is returned, unwrapped.
func NewMultiProvider(providers ...Provider) Provider {
	if len(providers) == 1 {
		return providers[0]
	}
	return &MultiProvider{providers: providers}
}

// Name implements Provider.
func (m *MultiProvider) Name() string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// Fetch implements Provider. Any provider failure fails the whole fetch:
// a partial dataset must never replace the previous snapshot.
func (m *MultiProvider) Fetch(ctx context.Context) ([]model.Order, error) {
	results := make([][]model.Order, len(m.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range m.providers {
		i, p := i, p
		g.Go(func() error {
			orders, err := p.Fetch(gctx)
			if err != nil {
				return err
			}
			results[i] = orders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []model.Order
	for _, r := range results {
		combined = append(combined, r...)
	}
	return combined, nil
}
