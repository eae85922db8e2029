package macro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalendar_BuildDailyWeekday(t *testing.T) {
	calendar := NewCalendar()
	monday := time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC)

	briefing := calendar.BuildDaily(monday)

	require.Contains(t, briefing, "📅 Lịch vĩ mô hôm nay")
	require.Contains(t, briefing, "⏰ 19:30 - US CPI")
	require.Contains(t, briefing, "⏰ 21:00 - FOMC Minutes")
	require.Contains(t, briefing, "🔴 Cao")
	require.Contains(t, briefing, "⚠️ Hạn chế vào lệnh quanh giờ ra tin nhé!")
}

func TestCalendar_BuildDailyWeekend(t *testing.T) {
	calendar := NewCalendar()
	saturday := time.Date(2025, 9, 6, 7, 0, 0, 0, time.UTC)

	briefing := calendar.BuildDaily(saturday)

	require.Contains(t, briefing, "Hôm nay không có tin vĩ mô quan trọng")
	require.NotContains(t, briefing, "⏰")
}

func TestCalendar_WithItems(t *testing.T) {
	calendar := NewCalendar(WithItems(func(time.Time) []Item {
		return []Item{{Time: "20:00", Event: "ECB Rate Decision", Impact: "Medium"}}
	}))

	briefing := calendar.BuildDaily(time.Date(2025, 9, 6, 7, 0, 0, 0, time.UTC))

	require.Contains(t, briefing, "⏰ 20:00 - ECB Rate Decision")
	require.Contains(t, briefing, "🟡 Trung bình")
	require.NotContains(t, briefing, "US CPI")
}

func TestImpactLabel(t *testing.T) {
	require.Equal(t, "🔴 Cao", impactLabel("High"))
	require.Equal(t, "🟡 Trung bình", impactLabel("Medium"))
	require.Equal(t, "🟢 Thấp", impactLabel("Low"))
	require.Equal(t, "🟢 Thấp", impactLabel(""))
}
