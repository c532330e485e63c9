package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Sync
		ShelfSync
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Sync struct {
		Strategy    string        // send, receive, prompt, silent, disabled
		Tolerance   float64       // Relative difference treated as "same position"
		Debounce    time.Duration // Quiet window before a scheduled push goes out
		Fingerprint string        // binary or filename
		DeviceName  string        // Shown on other devices; hostname when empty
	}
	ShelfSync struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8173)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Progress sync defaults
	v.SetDefault("sync_strategy", "prompt")
	v.SetDefault("sync_tolerance", 0.01)
	v.SetDefault("sync_debounce", "5s")
	v.SetDefault("sync_fingerprint", "binary")
	v.SetDefault("sync_device_name", "")

	// Background shelf sync defaults
	v.SetDefault("shelf_sync_enabled", false)
	v.SetDefault("shelf_sync_schedule", "0 * * * *") // Hourly at :00

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Sync: Sync{
			Strategy:    v.GetString("SYNC_STRATEGY"),
			Tolerance:   v.GetFloat64("SYNC_TOLERANCE"),
			Debounce:    v.GetDuration("SYNC_DEBOUNCE"),
			Fingerprint: v.GetString("SYNC_FINGERPRINT"),
			DeviceName:  v.GetString("SYNC_DEVICE_NAME"),
		},
		ShelfSync: ShelfSync{
			Enabled:  v.GetBool("SHELF_SYNC_ENABLED"),
			Schedule: v.GetString("SHELF_SYNC_SCHEDULE"),
		},
	}
}
