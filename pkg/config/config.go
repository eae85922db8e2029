// Package config loads application settings from an optional YAML file
// overlaid by COFURE_* environment variables.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/cofure/cofure/pkg/core"
)

// Load reads settings from path (skipped when empty) and the environment,
// then validates the result.
func Load(path string) (*core.Settings, error) {
	v := viper.New()

	v.SetEnvPrefix("COFURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// AutomaticEnv only covers keys viper already knows about, so keys
	// without a default (the secrets in particular) must be bound before
	// Unmarshal can see their COFURE_* variables.
	for _, key := range []string{
		"telegram.token",
		"telegram.webhook_base_url",
		"binance.api_key",
		"binance.api_secret",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var settings core.Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "Asia/Ho_Chi_Minh")

	v.SetDefault("telegram.mode", string(core.ModePolling))

	v.SetDefault("report.hour", 6)
	v.SetDefault("report.minute", 0)
	v.SetDefault("report.size", 5)
	v.SetDefault("report.policy", string(core.SelectRandom))

	v.SetDefault("web.port", 3000)

	v.SetDefault("binance.min_quote_volume", 5_000_000)

	v.SetDefault("signals.enabled", false)
	v.SetDefault("signals.interval", "30m")
	v.SetDefault("signals.cooldown", "2h")
	v.SetDefault("signals.max_per_run", 3)
	v.SetDefault("signals.work_start", 6)
	v.SetDefault("signals.work_end", 22)

	v.SetDefault("macro.enabled", false)
	v.SetDefault("macro.hour", 7)
	v.SetDefault("macro.minute", 0)

	v.SetDefault("summary.enabled", false)
	v.SetDefault("summary.hour", 22)
	v.SetDefault("summary.minute", 0)

	v.SetDefault("state.backend", "bunt")
	v.SetDefault("state.path", ":memory:")
}

// durationHook parses duration strings like "1d12h" that the standard
// parser rejects.
func durationHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return str2duration.ParseDuration(data.(string))
	}
}
