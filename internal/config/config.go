package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"oracle-panel/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Session  SessionConfig  `mapstructure:"session"`
	Events   EventsConfig   `mapstructure:"events"`
	Panel    PanelConfig    `mapstructure:"panel"`
	Database DatabaseConfig `mapstructure:"database"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// EthereumConfig covers node and contract access.
type EthereumConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	WSURL           string `mapstructure:"ws_url"`
	ContractAddress string `mapstructure:"contract_address"`
	// PrivateKey switches from node-managed accounts to local signing.
	PrivateKey     string        `mapstructure:"private_key"`
	ChainID        int64         `mapstructure:"chain_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SessionConfig governs account tracking.
type SessionConfig struct {
	AccountPollInterval time.Duration `mapstructure:"account_poll_interval"`
	AlertEvery          int           `mapstructure:"alert_every"`
}

// EventsConfig governs contract event delivery when no websocket is configured.
type EventsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FromBlockLag uint64        `mapstructure:"from_block_lag"`
	BufferSize   int           `mapstructure:"buffer_size"`
}

// PanelConfig sets up the HTTP surface of the run command.
type PanelConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables auditing.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig routes panel alerts to external channels.
type AlertingConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	MinInterval time.Duration  `mapstructure:"min_interval"`
	QueueSize   int            `mapstructure:"queue_size"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot used for alerts.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORACLEPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	if err := requireText(v, "ethereum.contract_address", "ethereum.private_key"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "oraclepanel")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 14)

	v.SetDefault("ethereum.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("ethereum.ws_url", "")
	v.SetDefault("ethereum.contract_address", "")
	v.SetDefault("ethereum.private_key", "")
	v.SetDefault("ethereum.chain_id", 0)
	v.SetDefault("ethereum.request_timeout", "0s")

	v.SetDefault("session.account_poll_interval", "2s")
	v.SetDefault("session.alert_every", 5)

	v.SetDefault("events.poll_interval", "4s")
	v.SetDefault("events.from_block_lag", 3)
	v.SetDefault("events.buffer_size", 64)

	v.SetDefault("panel.listen_addr", "127.0.0.1:8080")
	v.SetDefault("panel.shutdown_timeout", "5s")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_interval", "2s")
	v.SetDefault("alerting.queue_size", 32)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

// requireText rejects hex values that YAML parsed as numbers. Unquoted 0x
// literals would otherwise reach the config as their decimal rendering.
func requireText(v *viper.Viper, keys ...string) error {
	for _, key := range keys {
		raw := v.Get(key)
		if raw == nil {
			continue
		}
		if _, ok := raw.(string); !ok {
			return fmt.Errorf("%s was read as %T; quote the value in the config file", key, raw)
		}
	}
	return nil
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Ethereum.RPCURL == "" {
		return fmt.Errorf("ethereum.rpc_url is required")
	}
	if !common.IsHexAddress(c.Ethereum.ContractAddress) {
		return fmt.Errorf("ethereum.contract_address must be a hex address, got %q", c.Ethereum.ContractAddress)
	}
	if c.Ethereum.RequestTimeout < 0 {
		return fmt.Errorf("ethereum.request_timeout cannot be negative")
	}
	if c.Session.AccountPollInterval <= 0 {
		return fmt.Errorf("session.account_poll_interval must be greater than zero")
	}
	if c.Session.AlertEvery <= 0 {
		return fmt.Errorf("session.alert_every must be greater than zero")
	}
	if c.Events.PollInterval <= 0 {
		return fmt.Errorf("events.poll_interval must be greater than zero")
	}
	if c.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.MinInterval < 0 {
		return fmt.Errorf("alerting.min_interval cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// Auditing reports whether a database is configured.
func (c *Config) Auditing() bool {
	return c.Database.DSN != ""
}
