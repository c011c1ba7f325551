// Package config loads runtime settings from flags, ZOOLO_* environment
// variables, an optional config file and a .env file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "ZOOLO"

// Config holds every runtime setting
type Config struct {
	Port             int    `mapstructure:"port"`
	DB               string `mapstructure:"db"`
	LogLevel         string `mapstructure:"log_level"`
	LogFormat        string `mapstructure:"log_format"`
	HTTPLog          bool   `mapstructure:"http_log"`
	Timezone         string `mapstructure:"timezone"`
	BlackoutMinutes  int    `mapstructure:"blackout_minutes"`
	VoidGraceMinutes int    `mapstructure:"void_grace_minutes"`
	NodeID           int64  `mapstructure:"node_id"`
	AdminUser        string `mapstructure:"admin_user"`
	AdminPassword    string `mapstructure:"admin_password"`
	DefaultRate      string `mapstructure:"default_commission"`
	StrictPayout     bool   `mapstructure:"strict_payout"`
	Brand            string `mapstructure:"brand"`
	TelegramToken    string `mapstructure:"telegram_token"`
	TelegramChatID   int64  `mapstructure:"telegram_chat_id"`

	// ShowVersion is set by --version and never read from files
	ShowVersion bool `mapstructure:"-"`
}

// flagSpec binds a command-line flag to a config key
type flagSpec struct {
	key   string
	flag  string
	usage string
}

var flagSpecs = []flagSpec{
	{"port", "port", "HTTP server port"},
	{"db", "db", "SQLite database path"},
	{"log_level", "log-level", "Log level (debug, info, warn, error)"},
	{"log_format", "log-format", "Log format (text, json)"},
	{"http_log", "http-log", "Log every HTTP request"},
	{"timezone", "timezone", "Business timezone for draws and dates"},
	{"blackout_minutes", "blackout", "Minutes before a draw when sales close"},
	{"void_grace_minutes", "void-grace", "Minutes after a sale an agency may void it"},
	{"node_id", "node-id", "Serial generator node (0-1023), unique per server"},
	{"admin_user", "admin-user", "Operator username"},
	{"admin_password", "admin-password", "Operator password (generated if empty on first start)"},
	{"default_commission", "default-commission", "Commission rate for new agencies"},
	{"strict_payout", "strict-payout", "Refuse to mark tickets without a prize as paid"},
	{"brand", "brand", "Heading printed on receipts"},
	{"telegram_token", "telegram-token", "Telegram bot token for operator alerts"},
	{"telegram_chat_id", "telegram-chat-id", "Telegram chat for operator alerts (captured on /start if 0)"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db", "zoolo.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("http_log", false)
	v.SetDefault("timezone", "America/Lima")
	v.SetDefault("blackout_minutes", 5)
	v.SetDefault("void_grace_minutes", 5)
	v.SetDefault("node_id", 1)
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_password", "")
	v.SetDefault("default_commission", "0.15")
	v.SetDefault("strict_payout", false)
	v.SetDefault("brand", "ZOOLO")
	v.SetDefault("telegram_token", "")
	v.SetDefault("telegram_chat_id", 0)
}

// Load parses args (without the program name) and merges every source
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("zoolo", pflag.ContinueOnError)
	configFile := fs.String("config", "", "Config file (yaml, json or toml)")
	envFile := fs.String("env-file", ".env", "Dotenv file loaded before reading the environment")
	showVersion := fs.Bool("version", false, "Show version and exit")
	fs.Int("port", v.GetInt("port"), "")
	fs.String("db", v.GetString("db"), "")
	fs.String("log-level", v.GetString("log_level"), "")
	fs.String("log-format", v.GetString("log_format"), "")
	fs.Bool("http-log", false, "")
	fs.String("timezone", v.GetString("timezone"), "")
	fs.Int("blackout", v.GetInt("blackout_minutes"), "")
	fs.Int("void-grace", v.GetInt("void_grace_minutes"), "")
	fs.Int64("node-id", v.GetInt64("node_id"), "")
	fs.String("admin-user", v.GetString("admin_user"), "")
	fs.String("admin-password", "", "")
	fs.String("default-commission", v.GetString("default_commission"), "")
	fs.Bool("strict-payout", false, "")
	fs.String("brand", v.GetString("brand"), "")
	fs.String("telegram-token", "", "")
	fs.Int64("telegram-chat-id", 0, "")
	for _, spec := range flagSpecs {
		fs.Lookup(spec.flag).Usage = spec.usage
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	for _, spec := range flagSpecs {
		if err := v.BindPFlag(spec.key, fs.Lookup(spec.flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", spec.flag, err)
		}
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", *envFile, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", *configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ShowVersion = *showVersion
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and formats
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DB == "" {
		return errors.New("db path is required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format %q must be text or json", c.LogFormat)
	}
	if c.BlackoutMinutes < 0 || c.VoidGraceMinutes < 0 {
		return errors.New("blackout and void grace must not be negative")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("node_id %d out of range 0-1023", c.NodeID)
	}
	if strings.TrimSpace(c.AdminUser) == "" {
		return errors.New("admin_user is required")
	}
	rate, err := c.DefaultCommission()
	if err != nil {
		return err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("default_commission %s must be between 0 and 1", rate)
	}
	return nil
}

// DefaultCommission parses the configured commission rate
func (c *Config) DefaultCommission() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.DefaultRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid default_commission %q: %w", c.DefaultRate, err)
	}
	return rate, nil
}

// Blackout returns the sales blackout before each draw
func (c *Config) Blackout() time.Duration {
	return time.Duration(c.BlackoutMinutes) * time.Minute
}

// VoidGrace returns how long an agency may void its own sale
func (c *Config) VoidGrace() time.Duration {
	return time.Duration(c.VoidGraceMinutes) * time.Minute
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
