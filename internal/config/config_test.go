package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Path != "sprout.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if got := cfg.Reminders.SearchDelay(); got != 300*time.Millisecond {
		t.Errorf("search delay = %v, want 300ms", got)
	}
	if cfg.Backup.RetentionDays != 30 {
		t.Errorf("retention = %d, want 30", cfg.Backup.RetentionDays)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without keys")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "sprout.yaml")
	yaml := "server:\n  port: \"9000\"\nreminders:\n  timezone: UTC\nbackup:\n  s3_bucket: plants\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SPROUT_SERVER_PORT", "9100")
	t.Setenv("SPROUT_BACKUP_RETENTION_DAYS", "14")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Errorf("port = %q, env should win over file", cfg.Server.Port)
	}
	if cfg.Reminders.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", cfg.Reminders.Timezone)
	}
	if cfg.Backup.S3Bucket != "plants" {
		t.Errorf("bucket = %q, want plants", cfg.Backup.S3Bucket)
	}
	if cfg.Backup.RetentionDays != 14 {
		t.Errorf("retention = %d, want 14", cfg.Backup.RetentionDays)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SPROUT_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SPROUT_LOG_LEVEL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"SPROUT_SERVER_PORT":           "server.port",
		"SPROUT_BACKUP_S3_BUCKET":      "backup.s3_bucket",
		"SPROUT_PUSH_VAPID_PUBLIC_KEY": "push.vapid_public_key",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	base, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timezone", func(c *Config) { c.Reminders.Timezone = "Mars/Olympus" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"one vapid key", func(c *Config) { c.Push.VAPIDPublicKey = "pub" }},
		{"schedule hour", func(c *Config) { c.Backup.ScheduleHour = 24 }},
		{"retention", func(c *Config) { c.Backup.RetentionDays = 0 }},
		{"no port", func(c *Config) { c.Server.Port = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
