package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Xray     XrayConfig     `yaml:"xray"`
	Telegram TelegramConfig `yaml:"telegram"`
	GeoIP    GeoIPConfig    `yaml:"geoip"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`
}

type XrayConfig struct {
	ConfigPath  string `yaml:"config_path"`
	Protocol    string `yaml:"protocol"`
	Servers     string `yaml:"servers"`      // inline JSON array of endpoint overrides
	ServersPath string `yaml:"servers_path"` // or a file holding the same array
}

type TelegramConfig struct {
	APIID          int           `yaml:"api_id"`
	APIHash        string        `yaml:"api_hash"`
	BotToken       string        `yaml:"bot_token"`
	SessionFile    string        `yaml:"session_file"`
	ProxyURL       string        `yaml:"proxy_url"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

type GeoIPConfig struct {
	CountryPath string `yaml:"country_path"`
}

// Load reads the YAML file at path and applies environment overrides.
// A missing file is not an error when path was not given explicitly, so the
// bot can be configured from the environment alone.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	var cfg Config
	// Defaults
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "xraybot.db"
	cfg.Xray.ConfigPath = "/usr/local/etc/xray/config.json"
	cfg.Xray.Protocol = "vless"
	cfg.Telegram.SessionFile = "xraybot.session"
	cfg.Telegram.HandlerTimeout = 15 * time.Second

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Telegram.HandlerTimeout <= 0 {
		cfg.Telegram.HandlerTimeout = 15 * time.Second
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_API_HASH"); v != "" {
		c.Telegram.APIHash = v
	}
	if v := os.Getenv("TELEGRAM_API_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_API_ID %q: %w", v, err)
		}
		c.Telegram.APIID = id
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			c.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("XRAY_CONFIG_PATH"); v != "" {
		c.Xray.ConfigPath = v
	}
	if v := os.Getenv("XRAY_SERVERS"); v != "" {
		c.Xray.Servers = v
		c.Xray.ServersPath = ""
	}
	return nil
}

// ServersDocument returns the raw endpoint override document, read from
// servers_path when no inline value is set.
func (c *Config) ServersDocument() ([]byte, error) {
	if strings.TrimSpace(c.Xray.Servers) != "" {
		return []byte(c.Xray.Servers), nil
	}
	if c.Xray.ServersPath == "" {
		return nil, errors.New("no endpoints configured: set xray.servers, xray.servers_path or XRAY_SERVERS")
	}
	data, err := os.ReadFile(c.Xray.ServersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers file: %w", err)
	}
	return data, nil
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.BotToken == "" {
		missing = append(missing, "telegram.bot_token (BOT_TOKEN)")
	}
	if c.Telegram.APIID == 0 {
		missing = append(missing, "telegram.api_id (TELEGRAM_API_ID)")
	}
	if c.Telegram.APIHash == "" {
		missing = append(missing, "telegram.api_hash (TELEGRAM_API_HASH)")
	}
	if c.Database.DSN == "" {
		missing = append(missing, "database.dsn (DATABASE_URL)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
