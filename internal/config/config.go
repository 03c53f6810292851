package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	okxAPIKeyENV     = "OKX_API_KEY"
	okxAPISecretENV  = "OKX_API_SECRET"
	okxPassphraseENV = "OKX_PASSPHRASE"
	telegramTokenENV = "TELEGRAM_TOKEN"
	databaseDSNENV   = "DATABASE_DSN"
)

type Config struct {
	Symbols []string `yaml:"symbols"`

	Trading   TradingConfig   `yaml:"trading"`
	Risk      RiskConfig      `yaml:"risk_management"`
	Algorithm AlgorithmConfig `yaml:"algorithm"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Journal   JournalConfig   `yaml:"journal"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Health    HealthConfig    `yaml:"health"`

	Debug bool `yaml:"debug"`
}

type TradingConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Frequency time.Duration `yaml:"trading_frequency"`
	// Таймфрейм и глубина истории для входных сигналов.
	KlineInterval string `yaml:"kline_interval"`
	KlineLimit    int    `yaml:"kline_limit"`
}

// MarshalYAML пишет частоту в секундах, как её читает Load.
func (t TradingConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Enabled       bool   `yaml:"enabled"`
		Frequency     int    `yaml:"trading_frequency"`
		KlineInterval string `yaml:"kline_interval"`
		KlineLimit    int    `yaml:"kline_limit"`
	}{
		Enabled:       t.Enabled,
		Frequency:     int(t.Frequency / time.Second),
		KlineInterval: t.KlineInterval,
		KlineLimit:    t.KlineLimit,
	}, nil
}

type RiskConfig struct {
	PositionSizePercent    float64 `yaml:"position_size_percent"`
	MinTradeAmount         float64 `yaml:"min_trade_amount"`
	MaxPositionSize        float64 `yaml:"max_position_size"`
	MaxDailyTrades         int     `yaml:"max_daily_trades"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	MaxDrawdown            float64 `yaml:"max_drawdown"`
	EmergencyStopLoss      float64 `yaml:"emergency_stop_loss"`
	StopLoss               float64 `yaml:"stop_loss"`
	ProfitTarget           float64 `yaml:"profit_target"`
}

type AlgorithmConfig struct {
	Strategy        string  `yaml:"strategy"`
	RSIPeriod       int     `yaml:"rsi_period"`
	RSIOversold     float64 `yaml:"rsi_oversold"`
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerStd    float64 `yaml:"bollinger_std"`
	MAShort         int     `yaml:"ma_short"`
	MALong          int     `yaml:"ma_long"`
}

type ExchangeConfig struct {
	Name       string `yaml:"name"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Passphrase string `yaml:"passphrase"`
	Sandbox    bool   `yaml:"sandbox"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load читает YAML по пути и накладывает ENV поверх секретов.
// Ключи — плоские, через точку: risk_management.stop_loss и т.д.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := &Config{
		Symbols: v.GetStringSlice("symbols"),
		Trading: TradingConfig{
			Enabled:       v.GetBool("trading.enabled"),
			Frequency:     time.Duration(v.GetInt("trading.trading_frequency")) * time.Second,
			KlineInterval: v.GetString("trading.kline_interval"),
			KlineLimit:    v.GetInt("trading.kline_limit"),
		},
		Risk: RiskConfig{
			PositionSizePercent:    v.GetFloat64("risk_management.position_size_percent"),
			MinTradeAmount:         v.GetFloat64("risk_management.min_trade_amount"),
			MaxPositionSize:        v.GetFloat64("risk_management.max_position_size"),
			MaxDailyTrades:         v.GetInt("risk_management.max_daily_trades"),
			MaxConcurrentPositions: v.GetInt("risk_management.max_concurrent_positions"),
			MaxDrawdown:            v.GetFloat64("risk_management.max_drawdown"),
			EmergencyStopLoss:      v.GetFloat64("risk_management.emergency_stop_loss"),
			StopLoss:               v.GetFloat64("risk_management.stop_loss"),
			ProfitTarget:           v.GetFloat64("risk_management.profit_target"),
		},
		Algorithm: AlgorithmConfig{
			Strategy:        v.GetString("algorithm.strategy"),
			RSIPeriod:       v.GetInt("algorithm.rsi_period"),
			RSIOversold:     v.GetFloat64("algorithm.rsi_oversold"),
			RSIOverbought:   v.GetFloat64("algorithm.rsi_overbought"),
			MACDFast:        v.GetInt("algorithm.macd_fast"),
			MACDSlow:        v.GetInt("algorithm.macd_slow"),
			MACDSignal:      v.GetInt("algorithm.macd_signal"),
			BollingerPeriod: v.GetInt("algorithm.bollinger_period"),
			BollingerStd:    v.GetFloat64("algorithm.bollinger_std"),
			MAShort:         v.GetInt("algorithm.ma_short"),
			MALong:          v.GetInt("algorithm.ma_long"),
		},
		Exchange: ExchangeConfig{
			Name:       v.GetString("exchange.name"),
			APIKey:     v.GetString("exchange.api_key"),
			APISecret:  v.GetString("exchange.api_secret"),
			Passphrase: v.GetString("exchange.passphrase"),
			Sandbox:    v.GetBool("exchange.sandbox"),
		},
		Journal: JournalConfig{
			Enabled: v.GetBool("journal.enabled"),
			DSN:     v.GetString("journal.dsn"),
		},
		Telegram: TelegramConfig{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetInt64("telegram.chat_id"),
		},
		Tracing: TracingConfig{
			Enabled: v.GetBool("tracing.enabled"),
			Host:    v.GetString("tracing.host"),
			Port:    v.GetInt("tracing.port"),
		},
		Health: HealthConfig{
			Enabled: v.GetBool("health.enabled"),
			Addr:    v.GetString("health.addr"),
		},
		Debug: v.GetBool("debug"),
	}

	// Секреты из окружения важнее файла.
	if key := os.Getenv(okxAPIKeyENV); key != "" {
		cfg.Exchange.APIKey = key
	}
	if secret := os.Getenv(okxAPISecretENV); secret != "" {
		cfg.Exchange.APISecret = secret
	}
	if pass := os.Getenv(okxPassphraseENV); pass != "" {
		cfg.Exchange.Passphrase = pass
	}
	if token := os.Getenv(telegramTokenENV); token != "" {
		cfg.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSNENV); dsn != "" {
		cfg.Journal.DSN = dsn
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbols", []string{"BTC-USDT"})

	v.SetDefault("trading.enabled", true)
	v.SetDefault("trading.trading_frequency", 300)
	v.SetDefault("trading.kline_interval", "1H")
	v.SetDefault("trading.kline_limit", 100)

	v.SetDefault("risk_management.position_size_percent", 0.1)
	v.SetDefault("risk_management.min_trade_amount", 10.0)
	v.SetDefault("risk_management.max_position_size", 1000.0)
	v.SetDefault("risk_management.max_daily_trades", 50)
	v.SetDefault("risk_management.max_concurrent_positions", 3)
	v.SetDefault("risk_management.max_drawdown", 0.1)
	v.SetDefault("risk_management.emergency_stop_loss", 0.15)
	v.SetDefault("risk_management.stop_loss", 0.05)
	v.SetDefault("risk_management.profit_target", 0.05)

	v.SetDefault("algorithm.strategy", "rsi_macd")
	v.SetDefault("algorithm.rsi_period", 14)
	v.SetDefault("algorithm.rsi_oversold", 30.0)
	v.SetDefault("algorithm.rsi_overbought", 70.0)
	v.SetDefault("algorithm.macd_fast", 12)
	v.SetDefault("algorithm.macd_slow", 26)
	v.SetDefault("algorithm.macd_signal", 9)
	v.SetDefault("algorithm.bollinger_period", 20)
	v.SetDefault("algorithm.bollinger_std", 2.0)
	v.SetDefault("algorithm.ma_short", 10)
	v.SetDefault("algorithm.ma_long", 30)

	v.SetDefault("exchange.name", "okx")
	v.SetDefault("exchange.sandbox", true)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.addr", ":8080")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "127.0.0.1")
	v.SetDefault("tracing.port", 6831)
}

func (c *Config) validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("symbols is empty")
	}
	if c.Trading.Frequency <= 0 {
		return errors.New("trading.trading_frequency must be positive")
	}
	if c.Risk.PositionSizePercent <= 0 || c.Risk.PositionSizePercent > 1 {
		return errors.New("risk_management.position_size_percent must be in (0,1]")
	}
	if c.Algorithm.MAShort >= c.Algorithm.MALong {
		return errors.New("algorithm.ma_short must be < algorithm.ma_long")
	}
	if c.Algorithm.MACDFast >= c.Algorithm.MACDSlow {
		return errors.New("algorithm.macd_fast must be < algorithm.macd_slow")
	}
	return nil
}

// Save пишет эффективную конфигурацию обратно в YAML. Секреты вычищаются:
// ключи, пароли и DSN живут в окружении, на диск они не попадают.
func (c *Config) Save(path string) error {
	redacted := *c
	redacted.Exchange.APIKey = ""
	redacted.Exchange.APISecret = ""
	redacted.Exchange.Passphrase = ""
	redacted.Telegram.Token = ""
	redacted.Journal.DSN = ""

	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}
