package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	batches [][]domain.Opportunity
	err     error
}

func (m *memStore) InsertBatch(_ context.Context, opps []domain.Opportunity) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, opps)
	return nil
}

type memArchiver struct {
	cycles int
	err    error
}

func (m *memArchiver) ArchiveCycle(_ context.Context, _ []domain.Opportunity, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.cycles++
	return nil
}

type memAlerter struct {
	titles   []string
	messages []string
	err      error
}

func (m *memAlerter) Notify(_ context.Context, title, message string) error {
	if m.err != nil {
		return m.err
	}
	m.titles = append(m.titles, title)
	m.messages = append(m.messages, message)
	return nil
}

// keyGate admits only the listed keys; errKeys return an error instead.
type keyGate struct {
	allow   map[string]bool
	errKeys map[string]bool
	seen    []string
}

func (g *keyGate) ShouldAlert(_ context.Context, key string) (bool, error) {
	g.seen = append(g.seen, key)
	if g.errKeys[key] {
		return false, errors.New("gate backend down")
	}
	return g.allow[key], nil
}

func sampleOpp(base string, direction domain.Direction, net float64) domain.Opportunity {
	return domain.Opportunity{
		Base:         base,
		Quote:        "USDC",
		BuyVenue:     "binance",
		SellVenue:    "uniswap_v2",
		BuyPrice:     100,
		SellPrice:    100 + net,
		Direction:    direction,
		NetProfitPct: net,
	}
}

func TestRecordFansOutToAllSinks(t *testing.T) {
	store := &memStore{}
	arch := &memArchiver{}
	alerter := &memAlerter{}

	r := NewRecorder(RecorderConfig{Store: store, Archiver: arch, Alerter: alerter}, testLogger())
	opps := []domain.Opportunity{sampleOpp("WETH", domain.DirectionCEXToDEX, 2.5)}

	r.Record(context.Background(), opps, 120*time.Millisecond)

	if len(store.batches) != 1 || len(store.batches[0]) != 1 {
		t.Errorf("store batches = %v", store.batches)
	}
	if arch.cycles != 1 {
		t.Errorf("archiver cycles = %d, want 1", arch.cycles)
	}
	if len(alerter.titles) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerter.titles))
	}
	if alerter.titles[0] != "1 arbitrage opportunity" {
		t.Errorf("title = %q", alerter.titles[0])
	}
	if !strings.Contains(alerter.messages[0], "cycle 120ms") {
		t.Errorf("message lacks cycle time: %q", alerter.messages[0])
	}
}

func TestRecordSinkFailuresAreIsolated(t *testing.T) {
	store := &memStore{err: errors.New("pg down")}
	arch := &memArchiver{err: errors.New("s3 down")}
	alerter := &memAlerter{}

	r := NewRecorder(RecorderConfig{Store: store, Archiver: arch, Alerter: alerter}, testLogger())
	r.Record(context.Background(), []domain.Opportunity{sampleOpp("WETH", domain.DirectionCEXToDEX, 2.5)}, time.Millisecond)

	if len(alerter.titles) != 1 {
		t.Fatalf("alert skipped because other sinks failed: %d alerts", len(alerter.titles))
	}
}

func TestRecordNilSinks(t *testing.T) {
	r := NewRecorder(RecorderConfig{}, testLogger())
	// Must not panic with nothing configured.
	r.Record(context.Background(), []domain.Opportunity{sampleOpp("WETH", domain.DirectionCEXToDEX, 2.5)}, time.Millisecond)
}

func TestAlertGateFiltersRepeats(t *testing.T) {
	wethKey := "WETH/USDC:cex_to_dex:binance>uniswap_v2"
	wbtcKey := "WBTC/USDC:cex_to_dex:binance>uniswap_v2"

	alerter := &memAlerter{}
	gate := &keyGate{allow: map[string]bool{wethKey: true}}

	r := NewRecorder(RecorderConfig{Alerter: alerter, Gate: gate}, testLogger())
	opps := []domain.Opportunity{
		sampleOpp("WETH", domain.DirectionCEXToDEX, 2.5),
		sampleOpp("WBTC", domain.DirectionCEXToDEX, 1.1),
	}
	r.Record(context.Background(), opps, time.Millisecond)

	if len(gate.seen) != 2 {
		t.Fatalf("gate consulted %d times, want 2 (keys %v)", len(gate.seen), gate.seen)
	}
	if gate.seen[0] != wethKey || gate.seen[1] != wbtcKey {
		t.Errorf("gate keys = %v", gate.seen)
	}
	if len(alerter.messages) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerter.messages))
	}
	if !strings.Contains(alerter.messages[0], "WETH/USDC") || strings.Contains(alerter.messages[0], "WBTC/USDC") {
		t.Errorf("message = %q, want WETH only", alerter.messages[0])
	}
}

func TestAlertGateAllCoolingDown(t *testing.T) {
	alerter := &memAlerter{}
	gate := &keyGate{} // admits nothing

	r := NewRecorder(RecorderConfig{Alerter: alerter, Gate: gate}, testLogger())
	r.Record(context.Background(), []domain.Opportunity{sampleOpp("WETH", domain.DirectionCEXToDEX, 2.5)}, time.Millisecond)

	if len(alerter.titles) != 0 {
		t.Fatalf("alert sent despite full cooldown: %v", alerter.titles)
	}
}

func TestAlertGateErrorFailsOpen(t *testing.T) {
	wethKey := "WETH/USDC:cex_to_dex:binance>uniswap_v2"

	alerter := &memAlerter{}
	gate := &keyGate{errKeys: map[string]bool{wethKey: true}}

	r := NewRecorder(RecorderConfig{Alerter: alerter, Gate: gate}, testLogger())
	r.Record(context.Background(), []domain.Opportunity{sampleOpp("WETH", domain.DirectionCEXToDEX, 2.5)}, time.Millisecond)

	if len(alerter.titles) != 1 {
		t.Fatal("gate error must not suppress the alert")
	}
}
