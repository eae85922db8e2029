// Package signal evaluates intraday momentum signals over futures klines
// and pushes qualifying ones to all recipients, with a per-symbol cooldown
// so the same market is not re-alerted back to back.
package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/cofure/cofure/pkg/core"
	"github.com/cofure/cofure/pkg/logger"
)

// Direction of a signal.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

const (
	rsiPeriod     = 14
	emaFastPeriod = 9
	emaSlowPeriod = 21
	klineInterval = "15m"
	klineDepth    = 120

	takeProfitRatio = 1.003
	stopLossRatio   = 0.997
)

// Signal is one qualified momentum setup.
type Signal struct {
	Symbol     string
	Direction  Direction
	Score      int
	Entry      float64
	TakeProfit float64
	StopLoss   float64
	RSI        float64
	EMAFast    float64
	EMASlow    float64
}

// Label maps the score to its confidence tier.
func (s Signal) Label() string {
	switch {
	case s.Score >= 70:
		return "Mạnh"
	case s.Score >= 50:
		return "Tiêu chuẩn"
	default:
		return "Tham khảo"
	}
}

// Engine scans active symbols and dispatches signal alerts.
type Engine struct {
	market   core.MarketService
	storage  core.StateStorage
	notifier core.Notifier
	log      logger.Logger

	cooldown  time.Duration
	maxPerRun int
	minVolume float64
}

// NewEngine wires the scan dependencies.
func NewEngine(
	market core.MarketService,
	storage core.StateStorage,
	notifier core.Notifier,
	log logger.Logger,
	settings core.SignalSettings,
	minQuoteVolume float64,
) *Engine {
	return &Engine{
		market:    market,
		storage:   storage,
		notifier:  notifier,
		log:       log,
		cooldown:  settings.Cooldown,
		maxPerRun: settings.MaxPerRun,
		minVolume: minQuoteVolume,
	}
}

// Run executes one scan cycle. Symbols on cooldown are skipped; at most
// MaxPerRun alerts are sent per cycle. Per-symbol fetch errors are logged
// and do not stop the scan.
func (e *Engine) Run(ctx context.Context) {
	symbols, err := e.market.ActiveSymbols(ctx, e.minVolume)
	if err != nil {
		e.log.WithError(err).Error("signal scan aborted, symbol list unavailable")
		return
	}

	now := time.Now()
	sent := 0

	for _, symbol := range symbols {
		if sent >= e.maxPerRun {
			break
		}

		onCooldown, err := e.onCooldown(symbol, now)
		if err != nil {
			e.log.WithError(err).WithField("symbol", symbol).Error("cooldown check failed")
			continue
		}
		if onCooldown {
			continue
		}

		klines, err := e.market.Klines(ctx, symbol, klineInterval, klineDepth)
		if err != nil {
			e.log.WithError(err).WithField("symbol", symbol).Warn("kline fetch failed, skipping symbol")
			continue
		}

		signal, ok := Evaluate(symbol, klines)
		if !ok {
			continue
		}

		e.notifier.Notify(FormatSignal(signal))

		if err := e.storage.MarkSignal(symbol, now); err != nil {
			e.log.WithError(err).WithField("symbol", symbol).Error("failed to persist cooldown mark")
		}
		if _, err := e.storage.IncrCounter(core.CounterSignals, 1); err != nil {
			e.log.WithError(err).Error("failed to bump signal counter")
		}

		e.log.WithFields(map[string]any{
			"symbol":    symbol,
			"direction": signal.Direction,
			"score":     signal.Score,
		}).Info("signal dispatched")

		sent++
	}
}

func (e *Engine) onCooldown(symbol string, now time.Time) (bool, error) {
	last, ok, err := e.storage.LastSignal(symbol)
	if err != nil {
		return false, err
	}
	return ok && now.Sub(last) < e.cooldown, nil
}

// Evaluate scores the latest candle against the momentum rules. The setup
// needs a fast/slow EMA alignment plus an RSI push in the same direction;
// otherwise no signal is produced.
func Evaluate(symbol string, klines []core.Kline) (Signal, bool) {
	if len(klines) < emaSlowPeriod+rsiPeriod {
		return Signal{}, false
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	rsi := last(talib.Rsi(closes, rsiPeriod))
	emaFast := last(talib.Ema(closes, emaFastPeriod))
	emaSlow := last(talib.Ema(closes, emaSlowPeriod))
	entry := closes[len(closes)-1]

	signal := Signal{
		Symbol:  symbol,
		Entry:   entry,
		RSI:     rsi,
		EMAFast: emaFast,
		EMASlow: emaSlow,
	}

	switch {
	case emaFast > emaSlow && rsi > 50:
		signal.Direction = Long
		signal.Score = 50
		if rsi > 55 {
			signal.Score += 20
		}
		if rsi > 65 {
			signal.Score += 10
		}
		signal.TakeProfit = entry * takeProfitRatio
		signal.StopLoss = entry * stopLossRatio
	case emaFast < emaSlow && rsi < 50:
		signal.Direction = Short
		signal.Score = 50
		if rsi < 45 {
			signal.Score += 20
		}
		if rsi < 35 {
			signal.Score += 10
		}
		signal.TakeProfit = entry * stopLossRatio
		signal.StopLoss = entry * takeProfitRatio
	default:
		return Signal{}, false
	}

	return signal, true
}

// FormatSignal renders a signal alert message.
func FormatSignal(s Signal) string {
	direction := "🟢 LONG"
	if s.Direction == Short {
		direction = "🔴 SHORT"
	}

	return fmt.Sprintf(
		"📢 Tín hiệu %s %s (%s)\n"+
			"🎯 Entry: %s\n"+
			"✅ TP: %s\n"+
			"🛑 SL: %s\n"+
			"📊 RSI14: %.1f | EMA9/21: %.4f/%.4f\n"+
			"⚠️ Tín hiệu chỉ mang tính tham khảo, quản lý vốn cẩn thận nhé!",
		direction, s.Symbol, s.Label(),
		formatPrice(s.Entry), formatPrice(s.TakeProfit), formatPrice(s.StopLoss),
		s.RSI, s.EMAFast, s.EMASlow,
	)
}

func formatPrice(v float64) string {
	switch {
	case v >= 100:
		return fmt.Sprintf("%.2f", v)
	case v >= 1:
		return fmt.Sprintf("%.4f", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
