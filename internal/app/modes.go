package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// ScanMode runs a single scan pass and logs the ranked result.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	start := time.Now()
	opps, err := deps.Scanner.ScanOnce(ctx)
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}

	a.logger.InfoContext(ctx, "scan complete",
		slog.Int("opportunities", len(opps)),
		slog.Duration("cycle_time", time.Since(start)),
	)

	top := deps.TopN
	if top <= 0 || top > len(opps) {
		top = len(opps)
	}
	for _, o := range opps[:top] {
		logOpportunity(a.logger, o)
	}
	return nil
}

// MonitorMode runs the streaming venues and the repeating scan loop until ctx
// is cancelled, feeding each non-empty cycle to the recorder.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, stream := range deps.Streams {
		stream := stream
		g.Go(func() error {
			err := stream.Run(gctx)
			if gctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("stream %s: %w", stream.Name(), err)
		})
	}

	g.Go(func() error {
		err := deps.Scanner.Monitor(gctx, func(opps []domain.Opportunity, cycleTime time.Duration) {
			deps.Recorder.Record(gctx, opps, cycleTime)
		})
		if gctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("monitor: %w", err)
	})

	return g.Wait()
}

func logOpportunity(logger *slog.Logger, o domain.Opportunity) {
	logger.Info("opportunity",
		slog.String("pair", o.Base+"/"+o.Quote),
		slog.String("direction", string(o.Direction)),
		slog.String("buy_venue", o.BuyVenue),
		slog.Float64("buy_price", o.BuyPrice),
		slog.String("sell_venue", o.SellVenue),
		slog.Float64("sell_price", o.SellPrice),
		slog.Float64("net_profit_pct", o.NetProfitPct),
	)
}
