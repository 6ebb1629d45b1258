package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"port":          "8080",
			"read_timeout":  5,
			"write_timeout": 10,
			"idle_timeout":  120,
		},
		"database": map[string]interface{}{
			"path": "sprout.db",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "text",
		},
		"reminders": map[string]interface{}{
			"timezone":           "Local",
			"search_debounce_ms": 300,
			"toast_duration_ms":  3000,
		},
		"push": map[string]interface{}{
			"vapid_public_key":  "",
			"vapid_private_key": "",
			"subscriber":        "mailto:admin@localhost",
			"interval_seconds":  60,
		},
		"backup": map[string]interface{}{
			"s3_endpoint":    "",
			"s3_bucket":      "",
			"s3_region":      "us-east-1",
			"s3_access_key":  "",
			"s3_secret_key":  "",
			"s3_prefix":      "sprout",
			"passphrase":     "",
			"schedule_hour":  3,
			"retention_days": 30,
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
