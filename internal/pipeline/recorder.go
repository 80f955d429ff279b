// Package pipeline connects the scanner's monitor callback to its consumers:
// alerting, persistence, and cold-storage archival. The scanner core knows
// nothing about any of them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmalhotra4/arbscan/internal/domain"
	"github.com/jmalhotra4/arbscan/internal/notify"
)

// OpportunityStore persists a cycle's opportunities.
type OpportunityStore interface {
	InsertBatch(ctx context.Context, opps []domain.Opportunity) error
}

// CycleArchiver archives a cycle's opportunities to object storage.
type CycleArchiver interface {
	ArchiveCycle(ctx context.Context, opps []domain.Opportunity, cycleTime time.Duration) error
}

// Alerter delivers a formatted alert.
type Alerter interface {
	Notify(ctx context.Context, title, message string) error
}

// AlertGate rate-limits repeat alerts for the same spread.
type AlertGate interface {
	ShouldAlert(ctx context.Context, key string) (bool, error)
}

// Recorder consumes monitor callbacks and fans each cycle out to whichever
// sinks are configured. Every sink is best-effort: a failing sink is logged
// and the rest still run, mirroring the scanner's own isolation policy.
type Recorder struct {
	store    OpportunityStore
	archiver CycleArchiver
	alerter  Alerter
	gate     AlertGate
	topN     int
	logger   *slog.Logger
}

// RecorderConfig configures a Recorder. Nil sinks are skipped.
type RecorderConfig struct {
	Store    OpportunityStore
	Archiver CycleArchiver
	Alerter  Alerter
	Gate     AlertGate
	// TopN caps how many opportunities one alert message lists.
	TopN int
}

// NewRecorder creates a Recorder.
func NewRecorder(cfg RecorderConfig, logger *slog.Logger) *Recorder {
	topN := cfg.TopN
	if topN <= 0 {
		topN = 5
	}
	return &Recorder{
		store:    cfg.Store,
		archiver: cfg.Archiver,
		alerter:  cfg.Alerter,
		gate:     cfg.Gate,
		topN:     topN,
		logger:   logger.With(slog.String("component", "recorder")),
	}
}

// Record handles one non-empty monitor cycle.
func (r *Recorder) Record(ctx context.Context, opps []domain.Opportunity, cycleTime time.Duration) {
	if r.store != nil {
		if err := r.store.InsertBatch(ctx, opps); err != nil {
			r.logger.Warn("store sink failed", slog.String("error", err.Error()))
		}
	}

	if r.archiver != nil {
		if err := r.archiver.ArchiveCycle(ctx, opps, cycleTime); err != nil {
			r.logger.Warn("archive sink failed", slog.String("error", err.Error()))
		}
	}

	if r.alerter != nil {
		r.alert(ctx, opps, cycleTime)
	}
}

// alert delivers one message for the cycle, listing the top opportunities
// that pass the cooldown gate.
func (r *Recorder) alert(ctx context.Context, opps []domain.Opportunity, cycleTime time.Duration) {
	fresh := opps
	if r.gate != nil {
		fresh = make([]domain.Opportunity, 0, len(opps))
		for _, o := range opps {
			key := alertGateKey(o)
			ok, err := r.gate.ShouldAlert(ctx, key)
			if err != nil {
				// Cooldown state unavailable: alert anyway rather than drop.
				r.logger.Warn("alert gate failed", slog.String("key", key), slog.String("error", err.Error()))
				ok = true
			}
			if ok {
				fresh = append(fresh, o)
			}
		}
	}
	if len(fresh) == 0 {
		return
	}

	title := fmt.Sprintf("%d arbitrage opportunities", len(fresh))
	if len(fresh) == 1 {
		title = "1 arbitrage opportunity"
	}
	message := notify.FormatOpportunities(fresh, r.topN) +
		fmt.Sprintf("\ncycle %dms", cycleTime.Milliseconds())

	if err := r.alerter.Notify(ctx, title, message); err != nil {
		r.logger.Warn("alert sink failed", slog.String("error", err.Error()))
	}
}

// alertGateKey identifies a spread for cooldown purposes: same pair, same
// direction, same venue pair.
func alertGateKey(o domain.Opportunity) string {
	return fmt.Sprintf("%s/%s:%s:%s>%s", o.Base, o.Quote, o.Direction, o.BuyVenue, o.SellVenue)
}
