package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cofure/cofure/pkg/core"
)

func digestSnapshot() core.Snapshot {
	return core.Snapshot{
		{Symbol: "BTCUSDT", PercentChange: 3.21, QuoteVolume: 12345678.9, FundingRate: 0.012, Trend: core.TrendUp},
		{Symbol: "ETHUSDT", PercentChange: -1.05, QuoteVolume: 987654.3, FundingRate: -0.034, Trend: core.TrendDown},
	}
}

func TestFormat_SingleMessage(t *testing.T) {
	now := time.Date(2025, 9, 1, 6, 0, 0, 0, time.UTC) // a Monday
	messages := Format(digestSnapshot(), core.Recipient{ID: "1", Name: "An"}, now)

	require.Len(t, messages, 1)
	message := messages[0]

	require.True(t, strings.HasPrefix(message, "🌞 Chào buổi sáng An!\n"))
	require.Contains(t, message, "🕕 06:00 - Thứ 2, 01/09/2025\n")
	require.True(t, strings.HasSuffix(message, "🚀 Chúc bạn một ngày trade thật hiệu quả nhé!"))
}

func TestFormat_InstrumentBlocks(t *testing.T) {
	now := time.Date(2025, 9, 1, 6, 0, 0, 0, time.UTC)
	message := Format(digestSnapshot(), core.Recipient{ID: "1", Name: "An"}, now)[0]

	require.Equal(t, 2, strings.Count(message, "🔹"))

	require.Contains(t, message, "🔹 1. BTCUSDT\n")
	require.Contains(t, message, "📈 Tăng/Giảm: +3.21%\n")
	require.Contains(t, message, "💸 Funding (tham khảo): 0.012%\n")
	require.Contains(t, message, "📊 Volume: 12,345,678 USDT\n")
	require.Contains(t, message, "📍 Xu hướng: Tăng\n")

	require.Contains(t, message, "🔹 2. ETHUSDT\n")
	require.Contains(t, message, "📈 Tăng/Giảm: -1.05%\n")
	require.Contains(t, message, "📍 Xu hướng: Giảm\n")

	// BTC block comes before ETH block, matching snapshot order
	require.Less(t, strings.Index(message, "BTCUSDT"), strings.Index(message, "ETHUSDT"))
}

func TestFormat_EmptySnapshot(t *testing.T) {
	now := time.Date(2025, 9, 1, 6, 0, 0, 0, time.UTC)
	message := Format(core.Snapshot{}, core.Recipient{ID: "1", Name: "An"}, now)[0]

	require.NotContains(t, message, "🔹")
	require.Contains(t, message, "🚀 Chúc bạn một ngày trade thật hiệu quả nhé!")
}

func TestFormat_PersonalizedGreetingOnly(t *testing.T) {
	now := time.Date(2025, 9, 1, 6, 0, 0, 0, time.UTC)
	snapshot := digestSnapshot()

	first := Format(snapshot, core.Recipient{ID: "1", Name: "An"}, now)[0]
	second := Format(snapshot, core.Recipient{ID: "2", Name: "Bình"}, now)[0]

	require.NotEqual(t, first, second)
	require.Equal(t,
		strings.TrimPrefix(first, "🌞 Chào buổi sáng An!"),
		strings.TrimPrefix(second, "🌞 Chào buổi sáng Bình!"),
	)
}

func TestTimeLabel(t *testing.T) {
	tests := []struct {
		day      time.Time
		expected string
	}{
		{time.Date(2025, 9, 1, 6, 0, 0, 0, time.UTC), "06:00 - Thứ 2, 01/09/2025"},
		{time.Date(2025, 9, 6, 22, 30, 0, 0, time.UTC), "22:30 - Thứ 7, 06/09/2025"},
		{time.Date(2025, 9, 7, 7, 15, 0, 0, time.UTC), "07:15 - Chủ nhật, 07/09/2025"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, TimeLabel(tt.day))
	}
}

func TestTrendLabel(t *testing.T) {
	require.Equal(t, "Tăng", TrendLabel(core.TrendUp))
	require.Equal(t, "Giảm", TrendLabel(core.TrendDown))
	require.Equal(t, "Đi ngang", TrendLabel(core.TrendFlat))
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345678.9, "12,345,678"},
		{987654.3, "987,654"},
		{-5, "0"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, FormatVolume(tt.value))
	}
}
