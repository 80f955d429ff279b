// Package cex implements domain.CexClient adapters for centralized venues:
// Binance via its SDK, Kraken over plain REST, and a Binance WebSocket stream
// for deployments that prefer pushed quotes over polling.
package cex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	bcommon "github.com/adshao/go-binance/v2/common"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// binanceInvalidSymbol is the Binance API error code for an unknown symbol.
const binanceInvalidSymbol = -1121

// Binance quotes the Binance spot book ticker over REST. Public market data
// needs no credentials; keys are accepted for deployments behind stricter
// weight limits.
type Binance struct {
	name   string
	client *binance.Client
}

// NewBinance creates a Binance client. name distinguishes venues when several
// entries share a kind; empty selects "binance". apiKey and secret may be
// empty.
func NewBinance(name, apiKey, secret string) *Binance {
	if name == "" {
		name = "binance"
	}
	return &Binance{name: name, client: binance.NewClient(apiKey, secret)}
}

// Name returns the venue identifier.
func (b *Binance) Name() string {
	return b.name
}

// BookTicker returns the best bid/ask for base+quote. An unknown symbol is
// reported as not listed, not as an error.
func (b *Binance) BookTicker(ctx context.Context, base, quote string) (domain.VenuePrice, bool, error) {
	symbol := strings.ToUpper(base + quote)

	tickers, err := b.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		var apiErr *bcommon.APIError
		if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
			return domain.VenuePrice{}, false, nil
		}
		return domain.VenuePrice{}, false, fmt.Errorf("binance: book ticker %s: %w", symbol, err)
	}
	if len(tickers) == 0 {
		return domain.VenuePrice{}, false, nil
	}

	t := tickers[0]
	bid, err := strconv.ParseFloat(t.BidPrice, 64)
	if err != nil {
		return domain.VenuePrice{}, false, fmt.Errorf("binance: parse bid %q: %w", t.BidPrice, err)
	}
	ask, err := strconv.ParseFloat(t.AskPrice, 64)
	if err != nil {
		return domain.VenuePrice{}, false, fmt.Errorf("binance: parse ask %q: %w", t.AskPrice, err)
	}

	return domain.VenuePrice{
		Venue:     b.Name(),
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}, true, nil
}

var _ domain.CexClient = (*Binance)(nil)
