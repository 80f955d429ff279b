package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// Pair is one candidate trading pair, by canonical symbols.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses "WETH/USDC" into a Pair.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return Pair{}, fmt.Errorf("scanner: malformed pair %q, want BASE/QUOTE", s)
	}
	return Pair{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}, nil
}

func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// PairDetector is the per-pair detection dependency of the Scanner. Satisfied
// by *Detector; substituted in tests.
type PairDetector interface {
	DetectPair(ctx context.Context, base, quote string) []domain.Opportunity
}

// Callback receives each non-empty monitor cycle's ranked opportunities and
// the cycle's wall-clock duration. The scanner expects nothing back.
type Callback func(opps []domain.Opportunity, cycleTime time.Duration)

// Scanner drives the detector across the candidate pair list, once or on a
// timer. It retains no opportunity state between cycles.
type Scanner struct {
	detector PairDetector
	pairs    []Pair
	interval time.Duration
	logger   *slog.Logger
}

// NewScanner creates a scanner over the given candidate pairs. An empty pair
// list is an unrecoverable configuration error and is rejected here so the
// scan entry points never have to re-validate it.
func NewScanner(detector PairDetector, pairs []Pair, interval time.Duration, logger *slog.Logger) (*Scanner, error) {
	if len(pairs) == 0 {
		return nil, domain.ErrEmptyPairList
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scanner{
		detector: detector,
		pairs:    pairs,
		interval: interval,
		logger:   logger.With(slog.String("component", "scanner")),
	}, nil
}

// ScanOnce runs the detector over every candidate pair and returns the merged
// result, stably sorted by descending net profit. Absence of opportunities is
// a normal outcome, not an error; the only error is context cancellation
// mid-scan.
func (s *Scanner) ScanOnce(ctx context.Context) ([]domain.Opportunity, error) {
	var all []domain.Opportunity
	for _, p := range s.pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		all = append(all, s.detector.DetectPair(ctx, p.Base, p.Quote)...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].NetProfitPct > all[j].NetProfitPct
	})
	return all, nil
}

// Monitor runs ScanOnce immediately and then on every interval tick until ctx
// is cancelled, invoking cb for each cycle that found something. Cycles are
// serialized: the ticker loop runs the next cycle only after the previous one
// has returned, so a slow cycle delays but never overlaps its successor.
// Cancellation lets the in-flight cycle finish; partial results are dropped,
// never delivered.
func (s *Scanner) Monitor(ctx context.Context, cb Callback) error {
	s.logger.Info("monitor started",
		slog.Int("pairs", len(s.pairs)),
		slog.Duration("interval", s.interval),
	)
	defer s.logger.Info("monitor stopped")

	s.runCycle(ctx, cb)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx, cb)
		}
	}
}

func (s *Scanner) runCycle(ctx context.Context, cb Callback) {
	start := time.Now()
	opps, err := s.ScanOnce(ctx)
	if err != nil {
		s.logger.Info("scan cycle aborted", slog.String("error", err.Error()))
		return
	}
	elapsed := time.Since(start)

	s.logger.Info("scan cycle complete",
		slog.Int("opportunities", len(opps)),
		slog.Duration("cycle_time", elapsed),
	)

	if len(opps) > 0 && cb != nil {
		cb(opps, elapsed)
	}
}
