package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        LoggingConfig             `yaml:"log"`
	REST       RESTConfig                `yaml:"rest"`
	WS         WSConfig                  `yaml:"ws"`
	Trading    TradingConfig             `yaml:"trading"`
	Strategies map[string]StrategyConfig `yaml:"strategies"`
	Risk       RiskConfig                `yaml:"risk"`
	State      StateConfig               `yaml:"state"`
	Recorder   RecorderConfig            `yaml:"recorder"`
	Metrics    MetricsConfig             `yaml:"metrics"`
	Telegram   TelegramConfig            `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type RESTConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WSConfig struct {
	URL          string        `yaml:"url"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

type TradingConfig struct {
	DryRun       bool          `yaml:"dry_run"`
	TickInterval time.Duration `yaml:"tick_interval"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
	StopTimeout  time.Duration `yaml:"stop_timeout"`
}

type StrategyConfig struct {
	Type       string         `yaml:"type"`
	Symbol     string         `yaml:"symbol"`
	Enabled    bool           `yaml:"enabled"`
	Parameters map[string]any `yaml:"parameters"`
}

type RiskConfig struct {
	MaxDailyLoss    float64 `yaml:"max_daily_loss"`
	MaxPositionSize float64 `yaml:"max_position_size"`
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	MaxDrawdownPct  float64 `yaml:"max_drawdown_pct"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.REST.BaseURL == "" {
		cfg.REST.BaseURL = "https://api.hyperliquid.xyz"
	}
	if cfg.REST.Timeout == 0 {
		cfg.REST.Timeout = 10 * time.Second
	}
	if cfg.WS.URL == "" {
		cfg.WS.URL = "wss://api.hyperliquid.xyz/ws"
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 30 * time.Second
	}
	if cfg.Trading.TickInterval == 0 {
		cfg.Trading.TickInterval = 5 * time.Second
	}
	if cfg.Trading.ErrorBackoff == 0 {
		cfg.Trading.ErrorBackoff = 10 * time.Second
	}
	if cfg.Trading.StopTimeout == 0 {
		cfg.Trading.StopTimeout = 15 * time.Second
	}
	if cfg.Risk.MaxDailyLoss == 0 {
		cfg.Risk.MaxDailyLoss = 1000
	}
	if cfg.Risk.MaxPositionSize == 0 {
		cfg.Risk.MaxPositionSize = 10000
	}
	if cfg.Risk.StopLossPct == 0 {
		cfg.Risk.StopLossPct = 5
	}
	if cfg.Risk.TakeProfitPct == 0 {
		cfg.Risk.TakeProfitPct = 10
	}
	if cfg.Risk.MaxDrawdownPct == 0 {
		cfg.Risk.MaxDrawdownPct = 20
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/hl-strategy-bot.db"
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = ":9090"
	}
}

func validate(cfg *Config) error {
	if cfg.Risk.MaxDailyLoss <= 0 {
		return errors.New("risk.max_daily_loss must be > 0")
	}
	if cfg.Risk.MaxPositionSize <= 0 {
		return errors.New("risk.max_position_size must be > 0")
	}
	if cfg.Recorder.Enabled && cfg.Recorder.DSN == "" {
		return errors.New("recorder.dsn is required when recorder is enabled")
	}
	for name, sc := range cfg.Strategies {
		if sc.Type == "" {
			return fmt.Errorf("strategies.%s.type is required", name)
		}
		if sc.Symbol == "" {
			return fmt.Errorf("strategies.%s.symbol is required", name)
		}
	}
	return nil
}
