package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// OpportunityStore persists emitted opportunities.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore over the client's pool.
func NewOpportunityStore(c *Client) *OpportunityStore {
	return &OpportunityStore{pool: c.Pool()}
}

const insertOpportunitySQL = `
INSERT INTO opportunities (
    id, base_symbol, quote_symbol, chain_id, notional,
    buy_venue, sell_venue, buy_price, sell_price,
    gross_spread_pct, net_profit_pct, est_cost_pct,
    direction, detected_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO NOTHING`

// InsertBatch writes one cycle's opportunities in a single batch round trip.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range opps {
		batch.Queue(insertOpportunitySQL,
			o.ID, o.Base, o.Quote, o.ChainID, o.Notional.String(),
			o.BuyVenue, o.SellVenue, o.BuyPrice, o.SellPrice,
			o.GrossSpreadPct, o.NetProfitPct, o.EstCostPct,
			string(o.Direction), o.DetectedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range opps {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunity: %w", err)
		}
	}
	return nil
}
