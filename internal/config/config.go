package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POLYBOT"

// Config is the full runtime configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
}

// TelegramConfig configures the Bot API client.
type TelegramConfig struct {
	Token      string        `mapstructure:"token"`
	AppURL     string        `mapstructure:"app_url"`
	APIURL     string        `mapstructure:"api_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// ServerConfig configures the webhook listener.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SessionConfig configures the multi-image session cache.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OutputConfig configures result images.
type OutputConfig struct {
	JPEGQuality      int   `mapstructure:"jpeg_quality"`
	MaxDownloadBytes int64 `mapstructure:"max_download_bytes"`
}

// LogConfig configures slog.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"telegram.token":            "",
	"telegram.app_url":          "",
	"telegram.api_url":          "https://api.telegram.org",
	"telegram.timeout":          30 * time.Second,
	"telegram.max_retries":      3,
	"server.addr":               ":8443",
	"server.read_timeout":       15 * time.Second,
	"server.write_timeout":      60 * time.Second,
	"session.backend":           "memory",
	"session.timeout":           30 * time.Second,
	"output.jpeg_quality":       90,
	"output.max_download_bytes": int64(20 << 20),
	"log.level":                 "info",
	"log.format":                "text",
}

// legacyEnv lists unprefixed variables accepted for a key.
var legacyEnv = map[string]string{
	"telegram.token":   "TELEGRAM_TOKEN",
	"telegram.app_url": "TELEGRAM_APP_URL",
}

// Options selects the sources Load reads.
type Options struct {
	// File is a YAML config file. Empty means none.
	File string

	// EnvFile is a dotenv file. Empty means ".env" if it exists.
	EnvFile string

	// Flags maps config keys to command-line flags. Only flags the user
	// set override other sources.
	Flags map[string]*pflag.Flag
}

// Default returns the built-in configuration. It ignores the environment.
func Default() *Config {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	return cfg
}

// Load reads configuration from every source in opts.
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := newViper()
	if opts.File != "" {
		v.SetConfigFile(opts.File)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		// BindEnv only fails without a key.
		_ = v.BindEnv(key, prefixed, legacy)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Logger builds a slog logger writing to w at the configured level and
// format. Unknown values fall back to info and text; Validate reports them.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}
