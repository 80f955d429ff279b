package domain

import (
	"context"
	"math/big"
)

// DexQuoter quotes a single on-chain venue for a forward swap. Implementations
// must report "cannot price this pair" through the QuoteResult tag rather than
// an error, so callers can tell no-route apart from a transport failure.
type DexQuoter interface {
	Name() string
	Quote(ctx context.Context, tokenIn, tokenOut TokenMapping, amountIn *big.Int) QuoteResult
}

// CexClient quotes a single centralized venue's order book. listed is false
// when the venue does not carry the pair; err is reserved for transport and
// decode failures.
type CexClient interface {
	Name() string
	BookTicker(ctx context.Context, base, quote string) (price VenuePrice, listed bool, err error)
}

// RateGuard admits outbound venue calls. Every venue query the scanner issues
// goes through Submit; the guard may delay the call, run it, or reject it with
// ErrRateLimited. It is always an injected collaborator, never a process-wide
// singleton, so tests can substitute a deterministic one.
type RateGuard interface {
	Submit(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
