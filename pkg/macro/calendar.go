// Package macro builds the daily macroeconomic event briefing.
package macro

import (
	"fmt"
	"strings"
	"time"

	"github.com/cofure/cofure/pkg/report"
)

// Item is a scheduled macro event in the bot's local wall-clock time.
type Item struct {
	Time   string
	Event  string
	Impact string
	Note   string
}

// Calendar resolves the macro items for a given day.
type Calendar struct {
	items func(day time.Time) []Item
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithItems replaces the item source.
func WithItems(items func(day time.Time) []Item) Option {
	return func(c *Calendar) {
		c.items = items
	}
}

// NewCalendar returns a calendar serving the built-in static schedule.
func NewCalendar(options ...Option) *Calendar {
	c := &Calendar{items: defaultItems}

	for _, option := range options {
		option(c)
	}

	return c
}

// defaultItems is the static schedule shipped with the bot. A real feed
// integration would replace this source through WithItems.
func defaultItems(day time.Time) []Item {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return nil
	default:
		return []Item{
			{Time: "19:30", Event: "US CPI", Impact: "High", Note: "Chỉ số giá tiêu dùng Mỹ"},
			{Time: "21:00", Event: "FOMC Minutes", Impact: "High", Note: "Biên bản họp Fed"},
		}
	}
}

// BuildDaily renders the macro briefing for the given day.
func (c *Calendar) BuildDaily(day time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📅 Lịch vĩ mô hôm nay (%s)\n\n", report.TimeLabel(day)))

	items := c.items(day)
	if len(items) == 0 {
		b.WriteString("Hôm nay không có tin vĩ mô quan trọng. Chúc bạn trade an toàn! ✅")
		return b.String()
	}

	for _, item := range items {
		b.WriteString(fmt.Sprintf("⏰ %s - %s\n", item.Time, item.Event))
		b.WriteString(fmt.Sprintf("   Mức độ: %s\n", impactLabel(item.Impact)))
		if item.Note != "" {
			b.WriteString(fmt.Sprintf("   %s\n", item.Note))
		}
		b.WriteString("\n")
	}

	b.WriteString("⚠️ Hạn chế vào lệnh quanh giờ ra tin nhé!")

	return b.String()
}

func impactLabel(impact string) string {
	switch impact {
	case "High":
		return "🔴 Cao"
	case "Medium":
		return "🟡 Trung bình"
	default:
		return "🟢 Thấp"
	}
}
