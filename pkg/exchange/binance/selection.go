package binance

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/cofure/cofure/pkg/core"
)

// ticker is the parsed subset of a 24h ticker record the digest needs.
type ticker struct {
	symbol        string
	percentChange float64
	quoteVolume   float64
}

// IsPerpetualUSDT reports whether a symbol denotes a USDT-quoted perpetual:
// it must end in "USDT" and carry no settlement/expiry qualifier (an
// underscore, e.g. "BTCUSDT_231229").
func IsPerpetualUSDT(symbol string) bool {
	return strings.HasSuffix(symbol, "USDT") && !strings.Contains(symbol, "_")
}

// parseTickers converts raw ticker records, failing the cycle on the first
// record that does not match the expected shape.
func parseTickers(stats []*futures.PriceChangeStats) ([]ticker, error) {
	tickers := make([]ticker, 0, len(stats))

	for _, s := range stats {
		change, err := parseFloat("priceChangePercent", s.PriceChangePercent)
		if err != nil {
			return nil, err
		}
		volume, err := parseFloat("quoteVolume", s.QuoteVolume)
		if err != nil {
			return nil, err
		}

		tickers = append(tickers, ticker{
			symbol:        s.Symbol,
			percentChange: change,
			quoteVolume:   volume,
		})
	}

	return tickers, nil
}

// sampleRandom picks a uniform sample of limit tickers without replacement.
func sampleRandom(rng *rand.Rand, tickers []ticker, limit int) []ticker {
	shuffled := append([]ticker(nil), tickers...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) > limit {
		shuffled = shuffled[:limit]
	}

	return shuffled
}

// topGainers picks the limit tickers with the highest positive percent
// change. Ties break by symbol ascending; non-positive change never enters
// the digest.
func topGainers(tickers []ticker, limit int) []ticker {
	gainers := make([]ticker, 0, len(tickers))
	for _, t := range tickers {
		if t.percentChange > 0 {
			gainers = append(gainers, t)
		}
	}

	sort.Slice(gainers, func(i, j int) bool {
		if gainers[i].percentChange != gainers[j].percentChange {
			return gainers[i].percentChange > gainers[j].percentChange
		}
		return gainers[i].symbol < gainers[j].symbol
	})

	if len(gainers) > limit {
		gainers = gainers[:limit]
	}

	return gainers
}

func trendOf(percentChange float64) core.Trend {
	switch {
	case percentChange > 0:
		return core.TrendUp
	case percentChange < 0:
		return core.TrendDown
	default:
		return core.TrendFlat
	}
}
