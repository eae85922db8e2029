package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cofure/cofure/pkg/core"
	"github.com/cofure/cofure/pkg/logger/zerolog"
)

type scanMarket struct {
	symbols []string
	klines  map[string][]core.Kline
	failFor map[string]error
}

func (m *scanMarket) ActiveSymbols(context.Context, float64) ([]string, error) {
	return m.symbols, nil
}

func (m *scanMarket) Klines(_ context.Context, symbol, _ string, _ int) ([]core.Kline, error) {
	if err, failed := m.failFor[symbol]; failed {
		return nil, err
	}
	return m.klines[symbol], nil
}

func (m *scanMarket) Snapshot(context.Context, int) (core.Snapshot, error) {
	return nil, errors.New("not implemented")
}

func (m *scanMarket) FundingRate(context.Context, string) (float64, error) {
	return 0, errors.New("not implemented")
}

type memoryState struct {
	counters map[string]int
	marks    map[string]time.Time
}

func newMemoryState() *memoryState {
	return &memoryState{counters: map[string]int{}, marks: map[string]time.Time{}}
}

func (s *memoryState) IncrCounter(name string, delta int) (int, error) {
	s.counters[name] += delta
	return s.counters[name], nil
}

func (s *memoryState) Counter(name string) (int, error) { return s.counters[name], nil }

func (s *memoryState) MarkSignal(symbol string, at time.Time) error {
	s.marks[symbol] = at
	return nil
}

func (s *memoryState) LastSignal(symbol string) (time.Time, bool, error) {
	at, ok := s.marks[symbol]
	return at, ok, nil
}

func (s *memoryState) Reset() error {
	s.counters = map[string]int{}
	s.marks = map[string]time.Time{}
	return nil
}

func (s *memoryState) Close() error { return nil }

type captureNotifier struct {
	sent []string
}

func (n *captureNotifier) Notify(text string) { n.sent = append(n.sent, text) }

func (n *captureNotifier) DeliverAll(map[string][]string) core.DeliveryReport {
	return core.DeliveryReport{}
}

func newTestEngine(t *testing.T, market core.MarketService, state core.StateStorage, notifier core.Notifier, settings core.SignalSettings) *Engine {
	t.Helper()
	log, err := zerolog.New("disabled", "2006-01-02 15:04:05", false, false)
	require.NoError(t, err)
	return NewEngine(market, state, notifier, log, settings, 0)
}

func scanSettings() core.SignalSettings {
	return core.SignalSettings{
		Enabled:   true,
		Interval:  30 * time.Minute,
		Cooldown:  2 * time.Hour,
		MaxPerRun: 3,
	}
}

func TestEngine_RunDispatchesSignals(t *testing.T) {
	market := &scanMarket{
		symbols: []string{"BTCUSDT", "ETHUSDT", "XRPUSDT"},
		klines: map[string][]core.Kline{
			"BTCUSDT": risingKlines(120),
			"ETHUSDT": flatKlines(120),
			"XRPUSDT": fallingKlines(120),
		},
	}
	state := newMemoryState()
	notifier := &captureNotifier{}

	engine := newTestEngine(t, market, state, notifier, scanSettings())
	engine.Run(context.Background())

	require.Len(t, notifier.sent, 2)
	require.Contains(t, notifier.sent[0], "LONG BTCUSDT")
	require.Contains(t, notifier.sent[1], "SHORT XRPUSDT")

	require.Equal(t, 2, state.counters[core.CounterSignals])
	require.Contains(t, state.marks, "BTCUSDT")
	require.Contains(t, state.marks, "XRPUSDT")
	require.NotContains(t, state.marks, "ETHUSDT")
}

func TestEngine_RunHonorsCooldown(t *testing.T) {
	market := &scanMarket{
		symbols: []string{"BTCUSDT"},
		klines:  map[string][]core.Kline{"BTCUSDT": risingKlines(120)},
	}
	state := newMemoryState()
	state.marks["BTCUSDT"] = time.Now().Add(-30 * time.Minute)
	notifier := &captureNotifier{}

	engine := newTestEngine(t, market, state, notifier, scanSettings())
	engine.Run(context.Background())

	require.Empty(t, notifier.sent)

	// an expired cooldown lets the symbol alert again
	state.marks["BTCUSDT"] = time.Now().Add(-3 * time.Hour)
	engine.Run(context.Background())
	require.Len(t, notifier.sent, 1)
}

func TestEngine_RunCapsAlertsPerCycle(t *testing.T) {
	market := &scanMarket{
		symbols: []string{"AUSDT", "BUSDT", "CUSDT"},
		klines: map[string][]core.Kline{
			"AUSDT": risingKlines(120),
			"BUSDT": risingKlines(120),
			"CUSDT": risingKlines(120),
		},
	}
	state := newMemoryState()
	notifier := &captureNotifier{}

	settings := scanSettings()
	settings.MaxPerRun = 2

	engine := newTestEngine(t, market, state, notifier, settings)
	engine.Run(context.Background())

	require.Len(t, notifier.sent, 2)
}

func TestEngine_RunSkipsFailedSymbols(t *testing.T) {
	market := &scanMarket{
		symbols: []string{"AUSDT", "BUSDT"},
		klines:  map[string][]core.Kline{"BUSDT": risingKlines(120)},
		failFor: map[string]error{"AUSDT": errors.New("timeout")},
	}
	state := newMemoryState()
	notifier := &captureNotifier{}

	engine := newTestEngine(t, market, state, notifier, scanSettings())
	engine.Run(context.Background())

	// the failing symbol is skipped, the rest of the scan continues
	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0], "BUSDT")
}
