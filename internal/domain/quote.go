package domain

import (
	"math/big"
	"time"
)

// VenuePrice is one venue's bid/ask for a pair at one instant. Records are
// created fresh per query and discarded after the scan cycle that produced
// them.
type VenuePrice struct {
	Venue     string
	Bid       float64
	Ask       float64
	Timestamp time.Time
}

// QuoteStatus tags the outcome of a DEX quote request.
type QuoteStatus int

const (
	// QuoteOK means the venue returned a positive output amount.
	QuoteOK QuoteStatus = iota
	// QuoteNoRoute means the venue cannot price the pair (no pool, empty
	// reserves, simulation revert). Expected and non-fatal.
	QuoteNoRoute
	// QuoteFailed means the call itself failed: transport error, timeout, or
	// a response that could not be decoded.
	QuoteFailed
)

// QuoteResult is the tagged result of a single-direction DEX quote. Keeping
// "no route" distinct from a transport failure lets the detector silently
// skip the former and log the latter.
type QuoteResult struct {
	Status    QuoteStatus
	AmountOut *big.Int
	Err       error
}

// Quoted returns a successful quote for the given output amount.
func Quoted(amountOut *big.Int) QuoteResult {
	return QuoteResult{Status: QuoteOK, AmountOut: amountOut}
}

// NoRouteResult returns a "venue cannot price this pair" result.
func NoRouteResult() QuoteResult {
	return QuoteResult{Status: QuoteNoRoute}
}

// QuoteFailure returns a transport/decode failure result.
func QuoteFailure(err error) QuoteResult {
	return QuoteResult{Status: QuoteFailed, Err: err}
}
