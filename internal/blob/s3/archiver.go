package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// CycleArchiver writes each scan cycle's opportunity list as one JSON object,
// keyed by date so downstream analysis can list a day's cycles cheaply.
type CycleArchiver struct {
	writer *Writer
	prefix string
}

// NewCycleArchiver creates an archiver writing under the given key prefix.
func NewCycleArchiver(writer *Writer, prefix string) *CycleArchiver {
	if prefix == "" {
		prefix = "scans"
	}
	return &CycleArchiver{writer: writer, prefix: prefix}
}

// archivedCycle is the stored JSON shape.
type archivedCycle struct {
	ArchivedAt    time.Time     `json:"archived_at"`
	CycleTimeMs   int64         `json:"cycle_time_ms"`
	Opportunities []archivedOpp `json:"opportunities"`
}

type archivedOpp struct {
	ID             string  `json:"id"`
	Base           string  `json:"base"`
	Quote          string  `json:"quote"`
	ChainID        int     `json:"chain_id"`
	Notional       string  `json:"notional"`
	BuyVenue       string  `json:"buy_venue"`
	SellVenue      string  `json:"sell_venue"`
	BuyPrice       float64 `json:"buy_price"`
	SellPrice      float64 `json:"sell_price"`
	GrossSpreadPct float64 `json:"gross_spread_pct"`
	NetProfitPct   float64 `json:"net_profit_pct"`
	EstCostPct     float64 `json:"est_cost_pct"`
	Direction      string  `json:"direction"`
	DetectedAt     string  `json:"detected_at"`
}

// ArchiveCycle uploads one cycle's opportunities. The object key encodes the
// cycle timestamp: <prefix>/2006/01/02/cycle-150405.000.json.
func (a *CycleArchiver) ArchiveCycle(ctx context.Context, opps []domain.Opportunity, cycleTime time.Duration) error {
	now := time.Now().UTC()

	payload := archivedCycle{
		ArchivedAt:    now,
		CycleTimeMs:   cycleTime.Milliseconds(),
		Opportunities: make([]archivedOpp, 0, len(opps)),
	}
	for _, o := range opps {
		payload.Opportunities = append(payload.Opportunities, archivedOpp{
			ID:             o.ID,
			Base:           o.Base,
			Quote:          o.Quote,
			ChainID:        o.ChainID,
			Notional:       o.Notional.String(),
			BuyVenue:       o.BuyVenue,
			SellVenue:      o.SellVenue,
			BuyPrice:       o.BuyPrice,
			SellPrice:      o.SellPrice,
			GrossSpreadPct: o.GrossSpreadPct,
			NetProfitPct:   o.NetProfitPct,
			EstCostPct:     o.EstCostPct,
			Direction:      string(o.Direction),
			DetectedAt:     o.DetectedAt.Format(time.RFC3339Nano),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("s3blob: marshal cycle: %w", err)
	}

	key := fmt.Sprintf("%s/%s/cycle-%s.json",
		a.prefix,
		now.Format("2006/01/02"),
		now.Format("150405.000"),
	)
	return a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
}
