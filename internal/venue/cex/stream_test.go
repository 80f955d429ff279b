package cex

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func streamLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBinanceStreamApplyAndBookTicker(t *testing.T) {
	s := NewBinanceStream(StreamConfig{Symbols: []string{"ETHUSDC"}}, streamLogger())

	msg := []byte(`{"stream":"ethusdc@bookTicker","data":{"s":"ETHUSDC","b":"2500.10","a":"2501.50"}}`)
	if err := s.apply(msg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	price, listed, err := s.BookTicker(context.Background(), "ETH", "USDC")
	if err != nil {
		t.Fatalf("BookTicker: %v", err)
	}
	if !listed {
		t.Fatal("symbol not listed after apply")
	}
	if price.Bid != 2500.10 || price.Ask != 2501.50 {
		t.Errorf("price = %v/%v, want 2500.10/2501.50", price.Bid, price.Ask)
	}
	if price.Venue != "binance_ws" {
		t.Errorf("venue = %s", price.Venue)
	}

	// Later pushes replace earlier ones.
	if err := s.apply([]byte(`{"stream":"ethusdc@bookTicker","data":{"s":"ETHUSDC","b":"2510.00","a":"2511.00"}}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	price, _, _ = s.BookTicker(context.Background(), "eth", "usdc")
	if price.Bid != 2510.00 {
		t.Errorf("bid after update = %v, want 2510.00", price.Bid)
	}
}

func TestBinanceStreamBookTickerUnseenSymbol(t *testing.T) {
	s := NewBinanceStream(StreamConfig{Symbols: []string{"ETHUSDC"}}, streamLogger())

	_, listed, err := s.BookTicker(context.Background(), "BTC", "USDC")
	if err != nil {
		t.Fatalf("BookTicker: %v", err)
	}
	if listed {
		t.Fatal("unseen symbol reported as listed")
	}
}

func TestBinanceStreamBookTickerStaleQuote(t *testing.T) {
	s := NewBinanceStream(StreamConfig{
		Symbols: []string{"ETHUSDC"},
		MaxAge:  time.Millisecond,
	}, streamLogger())

	if err := s.apply([]byte(`{"stream":"ethusdc@bookTicker","data":{"s":"ETHUSDC","b":"2500.10","a":"2501.50"}}`)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_, listed, err := s.BookTicker(context.Background(), "ETH", "USDC")
	if err != nil {
		t.Fatalf("BookTicker: %v", err)
	}
	if listed {
		t.Fatal("stale quote still reported as listed")
	}
}

func TestBinanceStreamApplyRejectsBadPayloads(t *testing.T) {
	s := NewBinanceStream(StreamConfig{Symbols: []string{"ETHUSDC"}}, streamLogger())

	if err := s.apply([]byte(`not json`)); err == nil {
		t.Error("malformed JSON accepted")
	}
	if err := s.apply([]byte(`{"stream":"x","data":{"s":"ETHUSDC","b":"oops","a":"1"}}`)); err == nil {
		t.Error("unparseable bid accepted")
	}
	// Events without a symbol (e.g. subscription acks) are ignored, not errors.
	if err := s.apply([]byte(`{"result":null,"id":1}`)); err != nil {
		t.Errorf("ack message rejected: %v", err)
	}
}
