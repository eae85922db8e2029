// Package report renders the daily market digest. Everything here is pure:
// no I/O, no clock reads, so one cycle renders identically for every
// recipient except for the personal greeting.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cofure/cofure/pkg/core"
)

// Format renders the digest for one recipient as a single message.
// The returned slice always has length one; the slice shape keeps the
// delivery contract open for multi-message digests.
func Format(snapshot core.Snapshot, recipient core.Recipient, now time.Time) []string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🌞 Chào buổi sáng %s!\n", recipient.Name)
	fmt.Fprintf(&sb, "🕕 %s\n", TimeLabel(now))
	sb.WriteString("Cùng xem hôm nay thị trường có gì nha:\n\n")

	for i, stat := range snapshot {
		fmt.Fprintf(&sb, "🔹 %d. %s\n", i+1, stat.Symbol)
		fmt.Fprintf(&sb, "📈 Tăng/Giảm: %+.2f%%\n", stat.PercentChange)
		// The funding rate is a synthetic placeholder, so it is labelled
		// as indicative rather than presented as market data.
		fmt.Fprintf(&sb, "💸 Funding (tham khảo): %.3f%%\n", stat.FundingRate)
		fmt.Fprintf(&sb, "📊 Volume: %s USDT\n", FormatVolume(stat.QuoteVolume))
		fmt.Fprintf(&sb, "📍 Xu hướng: %s\n\n", TrendLabel(stat.Trend))
	}

	sb.WriteString("🚀 Chúc bạn một ngày trade thật hiệu quả nhé!")

	return []string{sb.String()}
}

// TimeLabel renders a timestamp the way the digest shows it:
// "06:00 - Thứ 2, 01/09/2025".
func TimeLabel(t time.Time) string {
	return fmt.Sprintf("%s - %s, %s", t.Format("15:04"), weekdayVN(t), t.Format("02/01/2006"))
}

// TrendLabel translates a trend into the digest wording.
func TrendLabel(trend core.Trend) string {
	switch trend {
	case core.TrendUp:
		return "Tăng"
	case core.TrendDown:
		return "Giảm"
	default:
		return "Đi ngang"
	}
}

// FormatVolume renders a non-negative volume with thousands separators,
// dropping the fractional part: 12345678.9 -> "12,345,678".
func FormatVolume(v float64) string {
	n := int64(math.Floor(v))
	if n < 0 {
		n = 0
	}

	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}

	return sb.String()
}

func weekdayVN(t time.Time) string {
	switch t.Weekday() {
	case time.Monday:
		return "Thứ 2"
	case time.Tuesday:
		return "Thứ 3"
	case time.Wednesday:
		return "Thứ 4"
	case time.Thursday:
		return "Thứ 5"
	case time.Friday:
		return "Thứ 6"
	case time.Saturday:
		return "Thứ 7"
	default:
		return "Chủ nhật"
	}
}
