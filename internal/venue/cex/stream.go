package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// DefaultBinanceWSURL is the Binance combined-stream WebSocket endpoint.
const DefaultBinanceWSURL = "wss://stream.binance.com:9443"

const (
	streamReadTimeout      = 75 * time.Second // Binance pings every ~20s
	streamReconnectBackoff = 2 * time.Second
)

// BinanceStream subscribes to Binance bookTicker streams and serves the last
// pushed quote per symbol. It satisfies domain.CexClient: BookTicker answers
// from the in-memory table, so detector-side queries cost nothing upstream.
// Run must be started for the table to fill; a quote older than MaxAge is
// treated as not listed for the cycle.
type BinanceStream struct {
	name    string
	wsURL   string
	symbols []string
	maxAge  time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	latest map[string]domain.VenuePrice
}

// StreamConfig configures a BinanceStream.
type StreamConfig struct {
	// Name is the venue identifier; empty selects "binance_ws".
	Name string
	// WSURL is the stream endpoint; empty selects the public one.
	WSURL string
	// Symbols lists the concatenated pair symbols to subscribe, e.g. "ETHUSDC".
	Symbols []string
	// MaxAge bounds how stale a cached quote may be before it stops counting
	// as a listing. Zero disables the check.
	MaxAge time.Duration
}

// NewBinanceStream creates the stream client. Call Run to connect.
func NewBinanceStream(cfg StreamConfig, logger *slog.Logger) *BinanceStream {
	name := cfg.Name
	if name == "" {
		name = "binance_ws"
	}
	wsURL := cfg.WSURL
	if wsURL == "" {
		wsURL = DefaultBinanceWSURL
	}
	symbols := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols = append(symbols, strings.ToLower(strings.TrimSpace(s)))
	}
	return &BinanceStream{
		name:    name,
		wsURL:   strings.TrimRight(wsURL, "/"),
		symbols: symbols,
		maxAge:  cfg.MaxAge,
		logger:  logger.With(slog.String("component", "binance_stream"), slog.String("venue", name)),
		latest:  make(map[string]domain.VenuePrice),
	}
}

// Name returns the venue identifier.
func (s *BinanceStream) Name() string {
	return s.name
}

// Run connects to the combined stream for the configured symbols and keeps
// the quote table current until ctx is cancelled. Reconnects with backoff on
// disconnect.
func (s *BinanceStream) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		s.logger.Info("no symbols to subscribe, exiting")
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("stream disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(streamReconnectBackoff):
		}
	}
}

func (s *BinanceStream) runConnection(ctx context.Context) error {
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = sym + "@bookTicker"
	}
	endpoint := s.wsURL + "/stream?streams=" + strings.Join(streams, "/")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("cex: dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	s.logger.Info("stream connected", slog.Int("symbols", len(s.symbols)))

	// Close the connection when ctx is cancelled to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("cex: read: %w", err)
		}
		if err := s.apply(data); err != nil {
			s.logger.Warn("bad stream message",
				slog.String("error", err.Error()),
				slog.String("payload", string(data)),
			)
		}
	}
}

// combinedMsg is the combined-stream envelope for bookTicker events.
type combinedMsg struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Bid    string `json:"b"`
		Ask    string `json:"a"`
	} `json:"data"`
}

// apply parses one stream message into the quote table.
func (s *BinanceStream) apply(data []byte) error {
	var msg combinedMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	if msg.Data.Symbol == "" {
		return nil
	}
	bid, err := strconv.ParseFloat(msg.Data.Bid, 64)
	if err != nil {
		return fmt.Errorf("parse bid %q: %w", msg.Data.Bid, err)
	}
	ask, err := strconv.ParseFloat(msg.Data.Ask, 64)
	if err != nil {
		return fmt.Errorf("parse ask %q: %w", msg.Data.Ask, err)
	}

	s.mu.Lock()
	s.latest[strings.ToUpper(msg.Data.Symbol)] = domain.VenuePrice{
		Venue:     s.Name(),
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}
	s.mu.Unlock()
	return nil
}

// BookTicker serves the last pushed quote for base+quote. A symbol the stream
// has not seen, or whose quote has gone stale, is reported as not listed.
func (s *BinanceStream) BookTicker(_ context.Context, base, quote string) (domain.VenuePrice, bool, error) {
	symbol := strings.ToUpper(base + quote)

	s.mu.RLock()
	price, ok := s.latest[symbol]
	s.mu.RUnlock()

	if !ok {
		return domain.VenuePrice{}, false, nil
	}
	if s.maxAge > 0 && time.Since(price.Timestamp) > s.maxAge {
		return domain.VenuePrice{}, false, nil
	}
	return price, true, nil
}

var _ domain.CexClient = (*BinanceStream)(nil)
