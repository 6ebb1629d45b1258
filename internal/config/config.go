package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys: SPROUT_SERVER_PORT sets server.port.
const EnvPrefix = "SPROUT_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Reminders RemindersConfig `koanf:"reminders"`
	Push      PushConfig      `koanf:"push"`
	Backup    BackupConfig    `koanf:"backup"`
}

type ServerConfig struct {
	Port         string `koanf:"port"`
	ReadTimeout  int    `koanf:"read_timeout"`  // seconds
	WriteTimeout int    `koanf:"write_timeout"` // seconds
	IdleTimeout  int    `koanf:"idle_timeout"`  // seconds
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
}

type RemindersConfig struct {
	Timezone         string `koanf:"timezone"`
	SearchDebounceMS int    `koanf:"search_debounce_ms"`
	ToastDurationMS  int    `koanf:"toast_duration_ms"`
}

type PushConfig struct {
	VAPIDPublicKey  string `koanf:"vapid_public_key"`
	VAPIDPrivateKey string `koanf:"vapid_private_key"`
	Subscriber      string `koanf:"subscriber"`
	IntervalSeconds int    `koanf:"interval_seconds"`
}

type BackupConfig struct {
	S3Endpoint    string `koanf:"s3_endpoint"`
	S3Bucket      string `koanf:"s3_bucket"`
	S3Region      string `koanf:"s3_region"`
	S3AccessKey   string `koanf:"s3_access_key"`
	S3SecretKey   string `koanf:"s3_secret_key"`
	S3Prefix      string `koanf:"s3_prefix"`
	Passphrase    string `koanf:"passphrase"`
	ScheduleHour  int    `koanf:"schedule_hour"`
	RetentionDays int    `koanf:"retention_days"`
}

// Load builds the configuration from defaults, then the optional YAML file at
// configPath, then SPROUT_* environment variables. A .env file in the working
// directory is read into the environment first if one exists.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// envKey maps SPROUT_BACKUP_S3_BUCKET to backup.s3_bucket. Only the first
// underscore after the prefix separates the section from the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %s (supported: text, json)", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Reminders.SearchDebounceMS < 0 {
		return fmt.Errorf("search_debounce_ms must not be negative")
	}
	if c.Reminders.ToastDurationMS < 0 {
		return fmt.Errorf("toast_duration_ms must not be negative")
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return fmt.Errorf("both VAPID keys must be set to enable push notifications")
	}
	if c.Push.IntervalSeconds <= 0 {
		return fmt.Errorf("push interval_seconds must be positive")
	}
	if c.Backup.ScheduleHour < 0 || c.Backup.ScheduleHour > 23 {
		return fmt.Errorf("backup schedule_hour must be between 0 and 23")
	}
	if c.Backup.RetentionDays <= 0 {
		return fmt.Errorf("backup retention_days must be positive")
	}
	return nil
}

// Location resolves the time zone reminders are evaluated in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Reminders.Timezone, err)
	}
	return loc, nil
}

func (c *Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}

func (s ServerConfig) Timeouts() (read, write, idle time.Duration) {
	return time.Duration(s.ReadTimeout) * time.Second,
		time.Duration(s.WriteTimeout) * time.Second,
		time.Duration(s.IdleTimeout) * time.Second
}

func (r RemindersConfig) SearchDelay() time.Duration {
	return time.Duration(r.SearchDebounceMS) * time.Millisecond
}

func (r RemindersConfig) ToastDuration() time.Duration {
	return time.Duration(r.ToastDurationMS) * time.Millisecond
}

func (p PushConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}
