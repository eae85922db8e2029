package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cofure/cofure/pkg/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cofure.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
  recipients:
    - id: "1"
      name: "An"
`

func TestLoad_Defaults(t *testing.T) {
	settings, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "Asia/Ho_Chi_Minh", settings.Timezone)
	require.Equal(t, core.ModePolling, settings.Telegram.Mode)
	require.Equal(t, 6, settings.Report.Hour)
	require.Equal(t, 0, settings.Report.Minute)
	require.Equal(t, 5, settings.Report.Size)
	require.Equal(t, core.SelectRandom, settings.Report.Policy)
	require.Equal(t, 3000, settings.Web.Port)
	require.Equal(t, 30*time.Minute, settings.Signals.Interval)
	require.Equal(t, 2*time.Hour, settings.Signals.Cooldown)
	require.Equal(t, "bunt", settings.State.Backend)
}

func TestLoad_FileOverrides(t *testing.T) {
	settings, err := Load(writeConfig(t, `
timezone: "UTC"
telegram:
  token: "123:abc"
  mode: "webhook"
  webhook_base_url: "https://cofure.example.com"
  recipients:
    - id: "1"
      name: "An"
    - id: "2"
      name: "Bình"
report:
  hour: 7
  minute: 30
  size: 10
  policy: "top-gainers"
signals:
  enabled: true
  interval: "45m"
  cooldown: "1h30m"
`))
	require.NoError(t, err)

	require.Equal(t, "UTC", settings.Timezone)
	require.Equal(t, core.ModeWebhook, settings.Telegram.Mode)
	require.Len(t, settings.Telegram.Recipients, 2)
	require.Equal(t, "Bình", settings.Telegram.Recipients[1].Name)
	require.Equal(t, 7, settings.Report.Hour)
	require.Equal(t, 30, settings.Report.Minute)
	require.Equal(t, core.SelectTopGainers, settings.Report.Policy)
	require.Equal(t, 45*time.Minute, settings.Signals.Interval)
	require.Equal(t, 90*time.Minute, settings.Signals.Cooldown)
}

func TestLoad_ExtendedDurations(t *testing.T) {
	settings, err := Load(writeConfig(t, minimalConfig+`
signals:
  cooldown: "1d2h"
`))
	require.NoError(t, err)
	require.Equal(t, 26*time.Hour, settings.Signals.Cooldown)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COFURE_TIMEZONE", "UTC")

	settings, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.Equal(t, "UTC", settings.Timezone)
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Setenv("COFURE_TELEGRAM_TOKEN", "123:fromenv")
	t.Setenv("COFURE_BINANCE_API_KEY", "mbx-key")
	t.Setenv("COFURE_BINANCE_API_SECRET", "mbx-secret")

	// the file carries no secrets at all
	settings, err := Load(writeConfig(t, `
telegram:
  recipients:
    - id: "1"
      name: "An"
`))
	require.NoError(t, err)
	require.Equal(t, "123:fromenv", settings.Telegram.Token)
	require.Equal(t, "mbx-key", settings.Binance.APIKey)
	require.Equal(t, "mbx-secret", settings.Binance.APISecret)
}

func TestLoad_EnvOverridesFileSecret(t *testing.T) {
	t.Setenv("COFURE_TELEGRAM_TOKEN", "123:fromenv")

	settings, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.Equal(t, "123:fromenv", settings.Telegram.Token)
}

func TestLoad_InvalidSettingsRejected(t *testing.T) {
	_, err := Load(writeConfig(t, `
telegram:
  token: ""
`))
	require.ErrorContains(t, err, "invalid settings")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorContains(t, err, "failed to read config file")
}
