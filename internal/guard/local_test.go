package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

func TestLocalAdmitsWithinBurst(t *testing.T) {
	g := NewLocal(LocalConfig{RatePerSec: 1, Burst: 3})

	calls := 0
	for i := 0; i < 3; i++ {
		err := g.Submit(context.Background(), "binance", func(ctx context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestLocalRejectsWhenDeadlinePrecludesAdmission(t *testing.T) {
	g := NewLocal(LocalConfig{RatePerSec: 0.1, Burst: 1})

	// Drain the single token.
	if err := g.Submit(context.Background(), "kraken", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := g.Submit(ctx, "kraken", func(ctx context.Context) error {
		t.Error("fn ran despite rejection")
		return nil
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestLocalKeysAreIndependent(t *testing.T) {
	g := NewLocal(LocalConfig{RatePerSec: 0.1, Burst: 1})

	if err := g.Submit(context.Background(), "binance", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("binance submit: %v", err)
	}

	// A drained binance bucket must not block kraken.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := g.Submit(ctx, "kraken", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("kraken submit blocked by unrelated key: %v", err)
	}
}

func TestLocalPropagatesFnError(t *testing.T) {
	g := NewLocal(LocalConfig{RatePerSec: 10, Burst: 1})
	sentinel := errors.New("venue exploded")

	err := g.Submit(context.Background(), "binance", func(ctx context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
}

func TestNopAlwaysAdmits(t *testing.T) {
	var g Nop
	ran := false
	if err := g.Submit(context.Background(), "anything", func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("nop submit: %v", err)
	}
	if !ran {
		t.Fatal("fn did not run")
	}
}
