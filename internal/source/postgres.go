package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ordercast/ordercast/internal/model"
)

// PostgresProvider reads the orders table directly. The table is owned
// by the collaborating data store; this provider only ever selects.
type PostgresProvider struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresProvider creates a provider over an existing pool.
func NewPostgresProvider(pool *pgxpool.Pool, logger *slog.Logger) *PostgresProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProvider{pool: pool, logger: logger}
}

// Name implements Provider.
func (p *PostgresProvider) Name() string {
	return "postgres"
}

// Fetch implements Provider.
func (p *PostgresProvider) Fetch(ctx context.Context) ([]model.Order, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT order_id, is_active, timestamp, payload
		FROM orders
		ORDER BY timestamp DESC, order_id
	`)
	if err != nil {
		return nil, classifyTransport(p.Name(), err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o       model.Order
			payload []byte
		)
		if err := rows.Scan(&o.OrderID, &o.IsActive, &o.Timestamp, &payload); err != nil {
			return nil, malformedErr(p.Name(), fmt.Errorf("scan row: %w", err))
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &o.Payload); err != nil {
				return nil, malformedErr(p.Name(),
					fmt.Errorf("payload for %s: %w", o.OrderID, err))
			}
		}
		if o.OrderID == "" {
			return nil, malformedErr(p.Name(), errors.New("row with empty order_id"))
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyTransport(p.Name(), err)
	}

	return orders, nil
}
