// Package core holds the domain model shared by every other package:
// recipients, market snapshots, settings and the service contracts wired
// together by the root bot.
package core

import (
	"context"
	"time"
)

// Trend classifies the 24h direction of an instrument.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// InstrumentStat is one instrument line of the daily digest. FundingRate is
// a synthetic placeholder drawn from a fixed symmetric range, not market
// data; the formatter flags it as indicative.
type InstrumentStat struct {
	Symbol        string
	PercentChange float64
	QuoteVolume   float64
	FundingRate   float64
	Trend         Trend
}

// Snapshot is the ordered instrument selection of one fetch cycle.
// It is rebuilt on every cycle and never persisted.
type Snapshot []InstrumentStat

// Kline is a single OHLCV candle, used by the signal engine only.
type Kline struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// DeliveryReport counts recipients after a fan-out cycle.
type DeliveryReport struct {
	Succeeded int
	Failed    int
}

// MarketService provides exchange market data. Snapshot covers the daily
// digest; the remaining calls feed the signal engine.
type MarketService interface {
	Snapshot(ctx context.Context, limit int) (Snapshot, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	FundingRate(ctx context.Context, symbol string) (float64, error)
	ActiveSymbols(ctx context.Context, minQuoteVolume float64) ([]string, error)
}

// Notifier delivers outbound messages to recipients.
type Notifier interface {
	// Notify sends the same text to every recipient in the directory.
	Notify(text string)
	// DeliverAll sends each recipient its own message batch, isolating
	// per-recipient failures. It never returns an error: partial and total
	// failures are reported through the counts.
	DeliverAll(batches map[string][]string) DeliveryReport
}

// StateStorage keeps the operational day state: counters for the night
// summary and per-symbol signal cooldown marks. Not a message archive.
type StateStorage interface {
	IncrCounter(name string, delta int) (int, error)
	Counter(name string) (int, error)
	MarkSignal(symbol string, at time.Time) error
	LastSignal(symbol string) (time.Time, bool, error)
	Reset() error
	Close() error
}

// Counter names tracked in StateStorage.
const (
	CounterDigests = "digests_sent"
	CounterSignals = "signals_sent"
)
