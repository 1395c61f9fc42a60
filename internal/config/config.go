package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"tokenledger/internal/store"
)

// Config is the tokenledger configuration file.
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store"`
	HTTP     HTTPConfig     `json:"http" yaml:"http"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Snapshot SnapshotConfig `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Notify   NotifyConfig   `json:"notify,omitempty" yaml:"notify,omitempty"`

	// DailyWindow is the default number of days for daily views.
	DailyWindow int `json:"dailyWindow,omitempty" yaml:"dailyWindow,omitempty"`
	// Timezone names the calendar used for daily bucketing ("Local" when empty).
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

type StoreConfig struct {
	Backend string `json:"backend" yaml:"backend"` // file, sqlite, redis, memory
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`

	RedisAddr     string `json:"redisAddr,omitempty" yaml:"redisAddr,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty" yaml:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDb,omitempty" yaml:"redisDb,omitempty"`
	RedisPrefix   string `json:"redisPrefix,omitempty" yaml:"redisPrefix,omitempty"`
}

type HTTPConfig struct {
	Bind   string   `json:"bind,omitempty" yaml:"bind,omitempty"`
	Tokens []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // console, json
}

type SnapshotConfig struct {
	// Schedule is a cron spec, e.g. "@daily" or "0 3 * * *". Empty disables snapshots.
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// NotifyConfig names the targets told about every recorded event and clear
// while the server runs.
type NotifyConfig struct {
	Hook    string `json:"hook,omitempty" yaml:"hook,omitempty"` // script, payload on stdin
	Webhook string `json:"webhook,omitempty" yaml:"webhook,omitempty"`
}

// ConfigPath is the active config file. Overridden by --config.
var ConfigPath string

func init() {
	if p := os.Getenv("TOKENLEDGER_CONFIG"); p != "" {
		ConfigPath = p
		return
	}
	homeDir, _ := os.UserHomeDir()
	ConfigPath = filepath.Join(homeDir, ".tokenledger", "config.json")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Store:       StoreConfig{Backend: store.BackendFile},
		HTTP:        HTTPConfig{Bind: ":3457"},
		Log:         LogConfig{Level: "info", Format: "console"},
		DailyWindow: 7,
	}
}

// LoadConfig reads ConfigPath, falling back to defaults when the file does
// not exist, then applies TOKENLEDGER_* environment overrides.
func LoadConfig() (*Config, error) {
	cfg, err := LoadFileConfig()
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if cfg.DailyWindow <= 0 {
		cfg.DailyWindow = 7
	}
	return cfg, nil
}

// LoadFileConfig reads ConfigPath without environment overrides. Use it to
// build a config that will be written back with SaveConfig.
func LoadFileConfig() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ConfigPath)
	switch {
	case err == nil:
		if err := unmarshal(ConfigPath, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ConfigPath, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", ConfigPath, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to ConfigPath in the format implied by its extension.
func SaveConfig(cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isYAML(ConfigPath) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "    ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(ConfigPath), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(ConfigPath, data, 0600)
}

// StoreOptions converts the store section for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Store.Backend,
		Path:          c.Store.Path,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		RedisPrefix:   c.Store.RedisPrefix,
	}
}

// Location resolves Timezone, defaulting to the local system calendar.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// envOverrides lists the TOKENLEDGER_* variables. Unset variables stay nil
// and leave the file value alone.
type envOverrides struct {
	Store         *string  `envconfig:"TOKENLEDGER_STORE"`
	StorePath     *string  `envconfig:"TOKENLEDGER_STORE_PATH"`
	StoreKey      *string  `envconfig:"TOKENLEDGER_STORE_KEY"`
	RedisAddr     *string  `envconfig:"TOKENLEDGER_REDIS_ADDR"`
	RedisPassword *string  `envconfig:"TOKENLEDGER_REDIS_PASSWORD"`
	RedisDB       *int     `envconfig:"TOKENLEDGER_REDIS_DB"`
	RedisPrefix   *string  `envconfig:"TOKENLEDGER_REDIS_PREFIX"`
	HTTPBind      *string  `envconfig:"TOKENLEDGER_HTTP_BIND"`
	HTTPTokens    []string `envconfig:"TOKENLEDGER_HTTP_TOKENS"`
	LogLevel      *string  `envconfig:"TOKENLEDGER_LOG_LEVEL"`
	LogFormat     *string  `envconfig:"TOKENLEDGER_LOG_FORMAT"`
	Schedule      *string  `envconfig:"TOKENLEDGER_SNAPSHOT_SCHEDULE"`
	SnapshotDir   *string  `envconfig:"TOKENLEDGER_SNAPSHOT_DIR"`
	NotifyHook    *string  `envconfig:"TOKENLEDGER_NOTIFY_HOOK"`
	NotifyWebhook *string  `envconfig:"TOKENLEDGER_NOTIFY_WEBHOOK"`
	DailyWindow   *int     `envconfig:"TOKENLEDGER_DAILY_WINDOW"`
	Timezone      *string  `envconfig:"TOKENLEDGER_TIMEZONE"`
}

// applyEnv overrides cfg from TOKENLEDGER_* variables. A value that does not
// parse is an error.
func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.Store.Backend, env.Store)
	set(&cfg.Store.Path, env.StorePath)
	set(&cfg.Store.Key, env.StoreKey)
	set(&cfg.Store.RedisAddr, env.RedisAddr)
	set(&cfg.Store.RedisPassword, env.RedisPassword)
	set(&cfg.Store.RedisPrefix, env.RedisPrefix)
	set(&cfg.HTTP.Bind, env.HTTPBind)
	set(&cfg.Log.Level, env.LogLevel)
	set(&cfg.Log.Format, env.LogFormat)
	set(&cfg.Snapshot.Schedule, env.Schedule)
	set(&cfg.Snapshot.Dir, env.SnapshotDir)
	set(&cfg.Notify.Hook, env.NotifyHook)
	set(&cfg.Notify.Webhook, env.NotifyWebhook)
	set(&cfg.Timezone, env.Timezone)
	if env.RedisDB != nil {
		cfg.Store.RedisDB = *env.RedisDB
	}
	if env.DailyWindow != nil {
		cfg.DailyWindow = *env.DailyWindow
	}

	if len(env.HTTPTokens) > 0 {
		var tokens []string
		for _, t := range env.HTTPTokens {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
		cfg.HTTP.Tokens = tokens
	}
	return nil
}
