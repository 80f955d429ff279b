package scanner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// stubDetector returns canned opportunities per pair.
type stubDetector struct {
	byPair map[string][]domain.Opportunity
}

func (s *stubDetector) DetectPair(_ context.Context, base, quote string) []domain.Opportunity {
	return s.byPair[base+"/"+quote]
}

func opp(id string, net float64) domain.Opportunity {
	return domain.Opportunity{ID: id, NetProfitPct: net}
}

func TestNewScannerEmptyPairs(t *testing.T) {
	_, err := NewScanner(&stubDetector{}, nil, time.Second, testLogger())
	if !errors.Is(err, domain.ErrEmptyPairList) {
		t.Fatalf("err = %v, want ErrEmptyPairList", err)
	}
}

func TestParsePair(t *testing.T) {
	tests := []struct {
		in      string
		want    Pair
		wantErr bool
	}{
		{in: "WETH/USDC", want: Pair{Base: "WETH", Quote: "USDC"}},
		{in: " WBTC / USDT ", want: Pair{Base: "WBTC", Quote: "USDT"}},
		{in: "WETH", wantErr: true},
		{in: "WETH/", wantErr: true},
		{in: "/USDC", wantErr: true},
		{in: "A/B/C", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePair(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePair(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePair(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePair(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestScanOnceRankingStable(t *testing.T) {
	// Equal-profit entries must keep their original relative order.
	det := &stubDetector{byPair: map[string][]domain.Opportunity{
		"WETH/USDC": {opp("a", 1.2), opp("b", 3.4)},
		"WBTC/USDC": {opp("c", 1.2), opp("d", 2.0)},
	}}
	pairs := []Pair{{Base: "WETH", Quote: "USDC"}, {Base: "WBTC", Quote: "USDC"}}

	s, err := NewScanner(det, pairs, time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	opps, err := s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}

	wantIDs := []string{"b", "d", "a", "c"}
	if len(opps) != len(wantIDs) {
		t.Fatalf("got %d opportunities, want %d", len(opps), len(wantIDs))
	}
	for i, want := range wantIDs {
		if opps[i].ID != want {
			t.Errorf("position %d: id = %s, want %s (order %v)", i, opps[i].ID, want, ids(opps))
		}
	}
}

func ids(opps []domain.Opportunity) []string {
	out := make([]string, len(opps))
	for i, o := range opps {
		out[i] = o.ID
	}
	return out
}

func TestScanOnceEmptyIsNotError(t *testing.T) {
	s, err := NewScanner(&stubDetector{}, []Pair{{Base: "WETH", Quote: "USDC"}}, time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	opps, err := s.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want 0", len(opps))
	}
}

// overlapDetector flags any concurrent DetectPair invocations.
type overlapDetector struct {
	inFlight   atomic.Int32
	overlapped atomic.Bool
	cycles     atomic.Int32
}

func (d *overlapDetector) DetectPair(ctx context.Context, _, _ string) []domain.Opportunity {
	if d.inFlight.Add(1) > 1 {
		d.overlapped.Store(true)
	}
	time.Sleep(20 * time.Millisecond)
	d.inFlight.Add(-1)
	d.cycles.Add(1)
	return nil
}

func TestMonitorCyclesDoNotOverlap(t *testing.T) {
	det := &overlapDetector{}
	// Interval far shorter than a cycle forces the ticker to fire while a
	// cycle is in flight; serialization must still hold.
	s, err := NewScanner(det, []Pair{{Base: "WETH", Quote: "USDC"}}, time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := s.Monitor(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Monitor = %v, want DeadlineExceeded", err)
	}

	if det.overlapped.Load() {
		t.Error("detector invocations overlapped across cycles")
	}
	if det.cycles.Load() < 2 {
		t.Errorf("only %d cycles ran, want at least 2", det.cycles.Load())
	}
}

func TestMonitorCallbackOnlyWhenNonEmpty(t *testing.T) {
	s, err := NewScanner(&stubDetector{}, []Pair{{Base: "WETH", Quote: "USDC"}}, time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var called atomic.Bool
	_ = s.Monitor(ctx, func([]domain.Opportunity, time.Duration) {
		called.Store(true)
	})

	if called.Load() {
		t.Error("callback invoked for empty cycles")
	}
}

func TestMonitorDeliversRankedCycles(t *testing.T) {
	det := &stubDetector{byPair: map[string][]domain.Opportunity{
		"WETH/USDC": {opp("low", 0.4), opp("high", 2.1)},
	}}
	s, err := NewScanner(det, []Pair{{Base: "WETH", Quote: "USDC"}}, 10*time.Millisecond, testLogger())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []domain.Opportunity
	done := make(chan struct{})

	go func() {
		_ = s.Monitor(ctx, func(opps []domain.Opportunity, cycleTime time.Duration) {
			mu.Lock()
			if got == nil {
				got = opps
				close(done)
			}
			mu.Unlock()
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never invoked")
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0].ID != "high" || got[1].ID != "low" {
		t.Fatalf("callback got %v, want [high low]", ids(got))
	}
}
