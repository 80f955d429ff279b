// Package scanner contains the arbitrage scanning core: the per-pair
// opportunity detector and the orchestrator that drives it across the
// candidate pair list.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// DetectorConfig holds the plain values the detector needs. All of them are
// injected at construction; the detector reads no environment or files.
type DetectorConfig struct {
	ChainID int
	// Notional is the trade size in the base token's smallest unit.
	Notional *big.Int
	// TotalFeePct lumps flashloan fee, DEX swap fee, CEX taker fee, and gas
	// into one flat percentage subtracted from every raw spread. This
	// misprices very small trades (fixed gas dominates) and very large ones
	// (price impact); it is the single knob on purpose.
	TotalFeePct float64
	// MinProfitPct is the minimum net profit, after TotalFeePct, that an
	// opportunity must strictly exceed to be emitted.
	MinProfitPct float64
	// QuoteTimeout bounds each individual venue query so one unresponsive
	// venue cannot stall a whole cycle.
	QuoteTimeout time.Duration
}

// Detector finds every profitable directional spread for one pair across the
// configured venue set. It holds no per-cycle state; each DetectPair call is
// a clean snapshot.
type Detector struct {
	tokens *domain.TokenMap
	dexes  []domain.DexQuoter
	cexes  []domain.CexClient
	guard  domain.RateGuard
	cfg    DetectorConfig
	logger *slog.Logger
}

// NewDetector creates a detector over the given venue set. Every outbound
// venue query is routed through guard.
func NewDetector(tokens *domain.TokenMap, dexes []domain.DexQuoter, cexes []domain.CexClient, guard domain.RateGuard, cfg DetectorConfig, logger *slog.Logger) *Detector {
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 10 * time.Second
	}
	return &Detector{
		tokens: tokens,
		dexes:  dexes,
		cexes:  cexes,
		guard:  guard,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "detector")),
	}
}

type dexPrice struct {
	venue string
	price float64
}

// DetectPair returns all spreads for (base, quote) whose fee-adjusted profit
// strictly exceeds the configured minimum. An unmapped symbol yields an empty
// result, logged once for the pair; a single venue's failure excludes only
// that venue from this cycle's comparisons. Output is unordered; ranking is
// the orchestrator's job.
func (d *Detector) DetectPair(ctx context.Context, base, quote string) []domain.Opportunity {
	baseTok, ok := d.tokens.Resolve(base, d.cfg.ChainID)
	if !ok {
		d.logger.Warn("pair skipped, base token unmapped",
			slog.String("base", base),
			slog.Int("chain_id", d.cfg.ChainID),
		)
		return nil
	}
	quoteTok, ok := d.tokens.Resolve(quote, d.cfg.ChainID)
	if !ok {
		d.logger.Warn("pair skipped, quote token unmapped",
			slog.String("quote", quote),
			slog.Int("chain_id", d.cfg.ChainID),
		)
		return nil
	}

	var (
		mu        sync.Mutex
		cexPrices []domain.VenuePrice
		dexPrices []dexPrice
	)

	// Venue queries are independent and read-only, so fan them out. Failures
	// never propagate through the group: each goroutine logs and returns nil
	// so one bad venue cannot cancel its siblings.
	g, gctx := errgroup.WithContext(ctx)

	for _, cex := range d.cexes {
		cex := cex
		g.Go(func() error {
			price, listed, ok := d.queryCex(gctx, cex, base, quote)
			if !ok || !listed {
				return nil
			}
			mu.Lock()
			cexPrices = append(cexPrices, price)
			mu.Unlock()
			return nil
		})
	}

	for _, dex := range d.dexes {
		dex := dex
		g.Go(func() error {
			price, ok := d.queryDex(gctx, dex, baseTok, quoteTok)
			if !ok {
				return nil
			}
			mu.Lock()
			dexPrices = append(dexPrices, dexPrice{venue: dex.Name(), price: price})
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	return d.compare(base, quote, cexPrices, dexPrices)
}

// queryCex runs one guarded book-ticker query. ok is false when the venue is
// excluded from this cycle for any reason.
func (d *Detector) queryCex(ctx context.Context, cex domain.CexClient, base, quote string) (price domain.VenuePrice, listed, ok bool) {
	qctx, cancel := context.WithTimeout(ctx, d.cfg.QuoteTimeout)
	defer cancel()

	err := d.guard.Submit(qctx, cex.Name(), func(ctx context.Context) error {
		var qerr error
		price, listed, qerr = cex.BookTicker(ctx, base, quote)
		return qerr
	})
	if err != nil {
		// Rate-limited and transport failures get the same treatment: the
		// venue sits out this cycle and retries on the next one.
		d.logger.Warn("cex query failed",
			slog.String("venue", cex.Name()),
			slog.String("base", base),
			slog.String("quote", quote),
			slog.Bool("rate_limited", errors.Is(err, domain.ErrRateLimited)),
			slog.String("error", err.Error()),
		)
		return domain.VenuePrice{}, false, false
	}
	if !listed {
		d.logger.Debug("pair not listed",
			slog.String("venue", cex.Name()),
			slog.String("base", base),
			slog.String("quote", quote),
		)
		return domain.VenuePrice{}, false, true
	}
	if price.Bid <= 0 || price.Ask <= 0 {
		return domain.VenuePrice{}, false, true
	}
	return price, true, true
}

// queryDex runs one guarded forward quote and derives a normalized price.
func (d *Detector) queryDex(ctx context.Context, dex domain.DexQuoter, baseTok, quoteTok domain.TokenMapping) (float64, bool) {
	qctx, cancel := context.WithTimeout(ctx, d.cfg.QuoteTimeout)
	defer cancel()

	var res domain.QuoteResult
	err := d.guard.Submit(qctx, dex.Name(), func(ctx context.Context) error {
		res = dex.Quote(ctx, baseTok, quoteTok, d.cfg.Notional)
		if res.Status == domain.QuoteFailed {
			return res.Err
		}
		return nil
	})
	if err != nil {
		d.logger.Warn("dex query failed",
			slog.String("venue", dex.Name()),
			slog.String("base", baseTok.Symbol),
			slog.String("quote", quoteTok.Symbol),
			slog.Bool("rate_limited", errors.Is(err, domain.ErrRateLimited)),
			slog.String("error", err.Error()),
		)
		return 0, false
	}
	if res.Status == domain.QuoteNoRoute {
		d.logger.Debug("no route",
			slog.String("venue", dex.Name()),
			slog.String("base", baseTok.Symbol),
			slog.String("quote", quoteTok.Symbol),
		)
		return 0, false
	}

	price := normalizedPrice(d.cfg.Notional, baseTok.Decimals, res.AmountOut, quoteTok.Decimals)
	if price <= 0 {
		return 0, false
	}
	return price, true
}

// compare crosses every collected CEX price against every DEX price in both
// directions, and every DEX price against every other DEX price, emitting the
// spreads whose net profit clears the threshold.
func (d *Detector) compare(base, quote string, cexPrices []domain.VenuePrice, dexPrices []dexPrice) []domain.Opportunity {
	var opps []domain.Opportunity
	now := time.Now().UTC()

	for _, c := range cexPrices {
		for _, x := range dexPrices {
			// CEX → DEX: buy base at the CEX ask, sell at the DEX price.
			gross := (x.price - c.Ask) / c.Ask * 100
			if net := gross - d.cfg.TotalFeePct; net > d.cfg.MinProfitPct {
				opps = append(opps, d.opportunity(base, quote, domain.DirectionCEXToDEX,
					c.Venue, c.Ask, x.venue, x.price, gross, net, now))
			}

			// DEX → CEX: buy at the DEX price, sell at the CEX bid.
			gross = (c.Bid - x.price) / x.price * 100
			if net := gross - d.cfg.TotalFeePct; net > d.cfg.MinProfitPct {
				opps = append(opps, d.opportunity(base, quote, domain.DirectionDEXToCEX,
					x.venue, x.price, c.Venue, c.Bid, gross, net, now))
			}
		}
	}

	for i := 0; i < len(dexPrices); i++ {
		for j := i + 1; j < len(dexPrices); j++ {
			lo, hi := dexPrices[i], dexPrices[j]
			if lo.price > hi.price {
				lo, hi = hi, lo
			}
			gross := (hi.price - lo.price) / lo.price * 100
			if net := gross - d.cfg.TotalFeePct; net > d.cfg.MinProfitPct {
				opps = append(opps, d.opportunity(base, quote, domain.DirectionDEXToDEX,
					lo.venue, lo.price, hi.venue, hi.price, gross, net, now))
			}
		}
	}

	return opps
}

func (d *Detector) opportunity(base, quote string, dir domain.Direction, buyVenue string, buyPrice float64, sellVenue string, sellPrice float64, gross, net float64, at time.Time) domain.Opportunity {
	return domain.Opportunity{
		ID:             uuid.NewString(),
		Base:           base,
		Quote:          quote,
		ChainID:        d.cfg.ChainID,
		Notional:       new(big.Int).Set(d.cfg.Notional),
		BuyVenue:       buyVenue,
		SellVenue:      sellVenue,
		BuyPrice:       buyPrice,
		SellPrice:      sellPrice,
		GrossSpreadPct: gross,
		NetProfitPct:   net,
		EstCostPct:     d.cfg.TotalFeePct,
		Direction:      dir,
		DetectedAt:     at,
	}
}

// normalizedPrice converts an integer forward quote into a unit price:
// (amountOut / 10^outDecimals) / (amountIn / 10^inDecimals). Both legs are
// scaled to whole-token units before the ratio is taken; dividing the raw
// integers would bake the decimal difference into the price.
func normalizedPrice(amountIn *big.Int, inDecimals int, amountOut *big.Int, outDecimals int) float64 {
	if amountIn == nil || amountOut == nil || amountIn.Sign() <= 0 || amountOut.Sign() <= 0 {
		return 0
	}
	in := new(big.Float).Quo(new(big.Float).SetInt(amountIn), pow10(inDecimals))
	out := new(big.Float).Quo(new(big.Float).SetInt(amountOut), pow10(outDecimals))
	price, _ := new(big.Float).Quo(out, in).Float64()
	return price
}

func pow10(n int) *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}
