// Package binance implements core.MarketService on top of the Binance
// USDT-M futures REST API.
package binance

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"github.com/samber/lo"

	"github.com/cofure/cofure/pkg/core"
	"github.com/cofure/cofure/pkg/logger"
)

const (
	// Bound of the synthetic funding placeholder: uniform in [-0.1, 0.1].
	defaultFundingRange = 0.1

	// Kline fetches retry a few times; the digest ticker fetch does not.
	maxKlineAttempts = 3
)

// Futures is the USDT-M futures market client.
type Futures struct {
	client       *futures.Client
	log          logger.Logger
	policy       core.SelectionPolicy
	selectFn     func(rng *rand.Rand, tickers []ticker, limit int) []ticker
	fundingRange float64
	rng          *rand.Rand
}

// Option configures a Futures client.
type Option func(*Futures)

// WithCredentials sets the API credentials. The API key is sent as the
// X-MBX-APIKEY header by the underlying client.
func WithCredentials(key, secret string) Option {
	return func(f *Futures) {
		f.client = futures.NewClient(key, secret)
	}
}

// WithSelectionPolicy fixes the snapshot selection policy. The policy is a
// construction-time choice, not a runtime branch.
func WithSelectionPolicy(policy core.SelectionPolicy) Option {
	return func(f *Futures) {
		f.policy = policy
	}
}

// WithRand sets the random source used for sampling and for the synthetic
// funding placeholder.
func WithRand(rng *rand.Rand) Option {
	return func(f *Futures) {
		f.rng = rng
	}
}

// NewFutures creates a futures market client. Defaults: anonymous client,
// random selection policy.
func NewFutures(log logger.Logger, options ...Option) (*Futures, error) {
	f := &Futures{
		client:       futures.NewClient("", ""),
		log:          log,
		policy:       core.SelectRandom,
		fundingRange: defaultFundingRange,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, option := range options {
		option(f)
	}

	switch f.policy {
	case core.SelectTopGainers:
		f.selectFn = func(_ *rand.Rand, tickers []ticker, limit int) []ticker {
			return topGainers(tickers, limit)
		}
	default:
		f.selectFn = sampleRandom
	}

	return f, nil
}

// Snapshot fetches the full 24h ticker list, keeps USDT perpetuals, applies
// the selection policy and derives the digest statistics. A failed or
// malformed fetch fails the whole cycle; there is no retry here.
func (f *Futures) Snapshot(ctx context.Context, limit int) (core.Snapshot, error) {
	stats, err := f.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, &core.UpstreamError{Service: "binance futures 24h ticker", Err: err}
	}

	perpetuals := lo.Filter(stats, func(s *futures.PriceChangeStats, _ int) bool {
		return IsPerpetualUSDT(s.Symbol)
	})

	tickers, err := parseTickers(perpetuals)
	if err != nil {
		return nil, err
	}

	selected := f.selectFn(f.rng, tickers, limit)

	snapshot := make(core.Snapshot, 0, len(selected))
	for _, t := range selected {
		snapshot = append(snapshot, core.InstrumentStat{
			Symbol:        t.symbol,
			PercentChange: math.Round(t.percentChange*100) / 100,
			QuoteVolume:   t.quoteVolume,
			FundingRate:   f.syntheticFunding(),
			Trend:         trendOf(t.percentChange),
		})
	}

	return snapshot, nil
}

// Klines fetches OHLCV candles for the signal engine, retrying transient
// failures with backoff.
func (f *Futures) Klines(ctx context.Context, symbol, interval string, limit int) ([]core.Kline, error) {
	retry := &backoff.Backoff{
		Min: 100 * time.Millisecond,
		Max: time.Second,
	}

	var (
		raw []*futures.Kline
		err error
	)

	for attempt := 1; ; attempt++ {
		raw, err = f.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		if err == nil {
			break
		}
		if attempt >= maxKlineAttempts {
			return nil, &core.UpstreamError{Service: "binance futures klines", Err: err}
		}

		f.log.WithError(err).WithField("symbol", symbol).Warn("kline fetch failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry.Duration()):
		}
	}

	klines := make([]core.Kline, 0, len(raw))
	for _, k := range raw {
		kline := core.Kline{Time: time.UnixMilli(k.OpenTime)}

		for _, field := range []struct {
			name  string
			value string
			dst   *float64
		}{
			{"open", k.Open, &kline.Open},
			{"high", k.High, &kline.High},
			{"low", k.Low, &kline.Low},
			{"close", k.Close, &kline.Close},
			{"volume", k.Volume, &kline.Volume},
		} {
			v, err := parseFloat(field.name, field.value)
			if err != nil {
				return nil, err
			}
			*field.dst = v
		}

		klines = append(klines, kline)
	}

	return klines, nil
}

// FundingRate returns the latest real funding rate from the premium index.
// Only the signal engine uses this; the digest keeps its placeholder.
func (f *Futures) FundingRate(ctx context.Context, symbol string) (float64, error) {
	index, err := f.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, &core.UpstreamError{Service: "binance futures premium index", Err: err}
	}

	if len(index) == 0 {
		return 0, nil
	}

	return parseFloat("lastFundingRate", index[0].LastFundingRate)
}

// ActiveSymbols returns the USDT perpetual symbols whose 24h quote volume is
// at least the given threshold, sorted ascending. Records with unparsable
// volume are skipped rather than failing the listing.
func (f *Futures) ActiveSymbols(ctx context.Context, minQuoteVolume float64) ([]string, error) {
	stats, err := f.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, &core.UpstreamError{Service: "binance futures 24h ticker", Err: err}
	}

	symbols := make([]string, 0, len(stats))
	for _, s := range stats {
		if !IsPerpetualUSDT(s.Symbol) {
			continue
		}
		volume, err := strconv.ParseFloat(s.QuoteVolume, 64)
		if err != nil {
			continue
		}
		if volume >= minQuoteVolume {
			symbols = append(symbols, s.Symbol)
		}
	}

	sort.Strings(symbols)
	return symbols, nil
}

func (f *Futures) syntheticFunding() float64 {
	rate := (f.rng.Float64()*2 - 1) * f.fundingRange
	return math.Round(rate*1000) / 1000
}

func parseFloat(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &core.DataShapeError{Field: field, Value: value, Err: err}
	}
	return v, nil
}
