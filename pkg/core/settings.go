package core

import (
	"fmt"
	"time"
)

// TransportMode selects how inbound platform messages reach the process.
// Exactly one mode is active for the whole process lifetime.
type TransportMode string

const (
	// ModePolling long-polls the bot platform for updates.
	ModePolling TransportMode = "polling"
	// ModeWebhook receives updates pushed by the platform over HTTP.
	ModeWebhook TransportMode = "webhook"
)

// SelectionPolicy decides which instruments enter the daily snapshot.
// The policy is a configuration choice fixed at startup.
type SelectionPolicy string

const (
	// SelectRandom picks a uniform sample without replacement.
	SelectRandom SelectionPolicy = "random"
	// SelectTopGainers picks the instruments with the highest positive
	// percent change, ties broken by symbol ascending.
	SelectTopGainers SelectionPolicy = "top-gainers"
)

// Settings is the full application configuration.
type Settings struct {
	Timezone string           `mapstructure:"timezone"`
	Telegram TelegramSettings `mapstructure:"telegram"`
	Report   ReportSettings   `mapstructure:"report"`
	Web      WebSettings      `mapstructure:"web"`
	Binance  BinanceSettings  `mapstructure:"binance"`
	Signals  SignalSettings   `mapstructure:"signals"`
	Macro    MacroSettings    `mapstructure:"macro"`
	Summary  SummarySettings  `mapstructure:"summary"`
	State    StateSettings    `mapstructure:"state"`
}

// TelegramSettings holds bot platform configuration.
type TelegramSettings struct {
	Token          string        `mapstructure:"token"`
	Mode           TransportMode `mapstructure:"mode"`
	WebhookBaseURL string        `mapstructure:"webhook_base_url"`
	Recipients     []Recipient   `mapstructure:"recipients"`
}

// ReportSettings configures the daily digest job.
type ReportSettings struct {
	Hour   int             `mapstructure:"hour"`
	Minute int             `mapstructure:"minute"`
	Size   int             `mapstructure:"size"`
	Policy SelectionPolicy `mapstructure:"policy"`
}

// WebSettings configures the liveness/webhook HTTP server.
type WebSettings struct {
	Port int `mapstructure:"port"`
}

// BinanceSettings holds exchange API configuration. Credentials always come
// from configuration or environment, never from source constants.
type BinanceSettings struct {
	APIKey         string  `mapstructure:"api_key"`
	APISecret      string  `mapstructure:"api_secret"`
	MinQuoteVolume float64 `mapstructure:"min_quote_volume"`
}

// SignalSettings configures the periodic signal job.
type SignalSettings struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
	MaxPerRun int           `mapstructure:"max_per_run"`
	WorkStart int           `mapstructure:"work_start"`
	WorkEnd   int           `mapstructure:"work_end"`
}

// MacroSettings configures the morning macro calendar job.
type MacroSettings struct {
	Enabled bool `mapstructure:"enabled"`
	Hour    int  `mapstructure:"hour"`
	Minute  int  `mapstructure:"minute"`
}

// SummarySettings configures the night summary job.
type SummarySettings struct {
	Enabled bool `mapstructure:"enabled"`
	Hour    int  `mapstructure:"hour"`
	Minute  int  `mapstructure:"minute"`
}

// StateSettings selects the day-state storage backend.
type StateSettings struct {
	Backend string `mapstructure:"backend"` // "bunt" or "sqlite"
	Path    string `mapstructure:"path"`    // file path, ":memory:" for bunt
}

// Location resolves the configured timezone name.
func (s *Settings) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Validate checks the invariants the rest of the application relies on.
func (s *Settings) Validate() error {
	if s.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	switch s.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if s.Telegram.WebhookBaseURL == "" {
			return fmt.Errorf("webhook mode requires a public base url")
		}
	default:
		return fmt.Errorf("invalid transport mode: %q", s.Telegram.Mode)
	}

	if len(s.Telegram.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	if _, err := s.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}

	for _, t := range []struct {
		name         string
		hour, minute int
	}{
		{"report", s.Report.Hour, s.Report.Minute},
		{"macro", s.Macro.Hour, s.Macro.Minute},
		{"summary", s.Summary.Hour, s.Summary.Minute},
	} {
		if t.hour < 0 || t.hour > 23 || t.minute < 0 || t.minute > 59 {
			return fmt.Errorf("invalid %s fire time: %02d:%02d", t.name, t.hour, t.minute)
		}
	}

	if s.Report.Size <= 0 {
		return fmt.Errorf("report size must be positive")
	}

	switch s.Report.Policy {
	case SelectRandom, SelectTopGainers:
	default:
		return fmt.Errorf("invalid selection policy: %q", s.Report.Policy)
	}

	if s.Web.Port <= 0 || s.Web.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", s.Web.Port)
	}

	if s.Signals.Enabled {
		if s.Signals.Interval <= 0 {
			return fmt.Errorf("signal interval must be positive")
		}
		if s.Signals.WorkStart < 0 || s.Signals.WorkEnd > 24 || s.Signals.WorkStart >= s.Signals.WorkEnd {
			return fmt.Errorf("invalid signal work window: %02d-%02d", s.Signals.WorkStart, s.Signals.WorkEnd)
		}
	}

	return nil
}
