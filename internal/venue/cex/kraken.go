package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// DefaultKrakenBaseURL is the public Kraken REST API root.
const DefaultKrakenBaseURL = "https://api.kraken.com"

// Kraken quotes the Kraken public Ticker endpoint.
type Kraken struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewKraken creates a Kraken client. An empty name selects "kraken"; an empty
// baseURL selects the public API.
func NewKraken(name, baseURL string) *Kraken {
	if name == "" {
		name = "kraken"
	}
	if baseURL == "" {
		baseURL = DefaultKrakenBaseURL
	}
	return &Kraken{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the venue identifier.
func (k *Kraken) Name() string {
	return k.name
}

// krakenTicker is the per-pair payload of /0/public/Ticker. Kraken returns
// price levels as ["price", "whole lot volume", "lot volume"] arrays.
type krakenTicker struct {
	Ask []string `json:"a"`
	Bid []string `json:"b"`
}

// BookTicker returns the best bid/ask for base+quote. An unknown pair is
// reported as not listed, not as an error.
func (k *Kraken) BookTicker(ctx context.Context, base, quote string) (domain.VenuePrice, bool, error) {
	pair := strings.ToUpper(base + quote)

	endpoint := fmt.Sprintf("%s/0/public/Ticker?pair=%s", k.baseURL, url.QueryEscape(pair))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.VenuePrice{}, false, fmt.Errorf("kraken: create request: %w", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return domain.VenuePrice{}, false, fmt.Errorf("kraken: ticker %s: %w", pair, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.VenuePrice{}, false, fmt.Errorf("kraken: ticker %s: unexpected status %d: %s", pair, resp.StatusCode, string(body))
	}

	var payload struct {
		Error  []string                `json:"error"`
		Result map[string]krakenTicker `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.VenuePrice{}, false, fmt.Errorf("kraken: decode ticker %s: %w", pair, err)
	}

	for _, e := range payload.Error {
		if strings.Contains(e, "Unknown asset pair") {
			return domain.VenuePrice{}, false, nil
		}
	}
	if len(payload.Error) > 0 {
		return domain.VenuePrice{}, false, fmt.Errorf("kraken: ticker %s: %s", pair, strings.Join(payload.Error, "; "))
	}

	// Kraken keys the result by its own pair alias, so take the first entry.
	for _, t := range payload.Result {
		if len(t.Ask) == 0 || len(t.Bid) == 0 {
			return domain.VenuePrice{}, false, nil
		}
		ask, err := strconv.ParseFloat(t.Ask[0], 64)
		if err != nil {
			return domain.VenuePrice{}, false, fmt.Errorf("kraken: parse ask %q: %w", t.Ask[0], err)
		}
		bid, err := strconv.ParseFloat(t.Bid[0], 64)
		if err != nil {
			return domain.VenuePrice{}, false, fmt.Errorf("kraken: parse bid %q: %w", t.Bid[0], err)
		}
		return domain.VenuePrice{
			Venue:     k.Name(),
			Bid:       bid,
			Ask:       ask,
			Timestamp: time.Now().UTC(),
		}, true, nil
	}

	return domain.VenuePrice{}, false, nil
}

var _ domain.CexClient = (*Kraken)(nil)
