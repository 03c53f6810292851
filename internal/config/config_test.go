package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "symbols:\n  - BTC-USDT\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC-USDT"}, cfg.Symbols)
	assert.True(t, cfg.Trading.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Trading.Frequency)
	assert.Equal(t, "1H", cfg.Trading.KlineInterval)
	assert.Equal(t, 100, cfg.Trading.KlineLimit)

	assert.InDelta(t, 0.1, cfg.Risk.PositionSizePercent, 1e-9)
	assert.InDelta(t, 10.0, cfg.Risk.MinTradeAmount, 1e-9)
	assert.InDelta(t, 1000.0, cfg.Risk.MaxPositionSize, 1e-9)
	assert.Equal(t, 50, cfg.Risk.MaxDailyTrades)
	assert.Equal(t, 3, cfg.Risk.MaxConcurrentPositions)
	assert.InDelta(t, 0.05, cfg.Risk.StopLoss, 1e-9)
	assert.InDelta(t, 0.05, cfg.Risk.ProfitTarget, 1e-9)

	assert.Equal(t, "rsi_macd", cfg.Algorithm.Strategy)
	assert.Equal(t, 14, cfg.Algorithm.RSIPeriod)
	assert.Equal(t, "okx", cfg.Exchange.Name)
	assert.True(t, cfg.Exchange.Sandbox)
	assert.False(t, cfg.Journal.Enabled)
	assert.True(t, cfg.Health.Enabled)
	assert.Equal(t, ":8080", cfg.Health.Addr)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
symbols:
  - ETH-USDT
  - SOL-USDT
trading:
  trading_frequency: 60
  kline_interval: 15m
risk_management:
  stop_loss: 0.03
algorithm:
  strategy: bollinger
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"ETH-USDT", "SOL-USDT"}, cfg.Symbols)
	assert.Equal(t, time.Minute, cfg.Trading.Frequency)
	assert.Equal(t, "15m", cfg.Trading.KlineInterval)
	assert.InDelta(t, 0.03, cfg.Risk.StopLoss, 1e-9)
	assert.Equal(t, "bollinger", cfg.Algorithm.Strategy)
}

func TestLoadEnvSecrets(t *testing.T) {
	t.Setenv("OKX_API_KEY", "env-key")
	t.Setenv("OKX_API_SECRET", "env-secret")
	t.Setenv("OKX_PASSPHRASE", "env-pass")

	path := writeConfig(t, `
symbols:
  - BTC-USDT
exchange:
  api_key: file-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Exchange.APIKey)
	assert.Equal(t, "env-secret", cfg.Exchange.APISecret)
	assert.Equal(t, "env-pass", cfg.Exchange.Passphrase)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidPositionSize(t *testing.T) {
	path := writeConfig(t, `
symbols:
  - BTC-USDT
risk_management:
  position_size_percent: 1.5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position_size_percent")
}

func TestLoadInvalidMAOrder(t *testing.T) {
	path := writeConfig(t, `
symbols:
  - BTC-USDT
algorithm:
  ma_short: 30
  ma_long: 10
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ma_short")
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeConfig(t, `
symbols:
  - BTC-USDT
trading:
  trading_frequency: 300
risk_management:
  stop_loss: 0.03
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(out))

	reloaded, err := Load(out)
	require.NoError(t, err)

	assert.Equal(t, cfg.Symbols, reloaded.Symbols)
	assert.Equal(t, 5*time.Minute, reloaded.Trading.Frequency)
	assert.InDelta(t, 0.03, reloaded.Risk.StopLoss, 1e-9)
	assert.Equal(t, cfg.Algorithm, reloaded.Algorithm)
}

func TestSaveStripsSecrets(t *testing.T) {
	t.Setenv("OKX_API_SECRET", "env-secret")
	t.Setenv("TELEGRAM_TOKEN", "env-token")
	t.Setenv("DATABASE_DSN", "postgres://user:pass@db/trades")

	path := writeConfig(t, `
symbols:
  - BTC-USDT
exchange:
  api_key: file-key
  passphrase: file-pass
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-secret", cfg.Exchange.APISecret)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "env-secret")
	assert.NotContains(t, string(data), "env-token")
	assert.NotContains(t, string(data), "user:pass")
	assert.NotContains(t, string(data), "file-key")
	assert.NotContains(t, string(data), "file-pass")

	// Сам конфиг в памяти секреты не теряет.
	assert.Equal(t, "env-secret", cfg.Exchange.APISecret)
	assert.Equal(t, "file-key", cfg.Exchange.APIKey)
}
