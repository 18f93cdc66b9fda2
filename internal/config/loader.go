package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the
// reservation service.
type Config struct {
	HTTPPort         int
	SQLiteDSN        string
	LogLevel         string
	SweepInterval    time.Duration
	ReminderHour     int
	OverdueCooldown  time.Duration
	EscalationDelay  time.Duration
	OversightChannel string
	NotifyWebhookURL string
	NotifyTimeout    time.Duration
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values, and reports every missing or invalid entry in one error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:library.db?_foreign_keys=on",
		LogLevel:        "info",
		SweepInterval:   5 * time.Minute,
		ReminderHour:    9,
		OverdueCooldown: 2 * time.Hour,
		EscalationDelay: 24 * time.Hour,
		NotifyTimeout:   5 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("LIBRARY_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "LIBRARY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("LIBRARY_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if level := strings.TrimSpace(os.Getenv("LIBRARY_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "LIBRARY_LOG_LEVEL")
		}
	}

	if intervalValue := strings.TrimSpace(os.Getenv("LIBRARY_SWEEP_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "LIBRARY_SWEEP_INTERVAL")
		} else {
			cfg.SweepInterval = interval
		}
	}

	if hourValue := strings.TrimSpace(os.Getenv("LIBRARY_REMINDER_HOUR")); hourValue != "" {
		hour, err := strconv.Atoi(hourValue)
		if err != nil || hour < 0 || hour > 23 {
			invalid = append(invalid, "LIBRARY_REMINDER_HOUR")
		} else {
			cfg.ReminderHour = hour
		}
	}

	if cooldownValue := strings.TrimSpace(os.Getenv("LIBRARY_OVERDUE_COOLDOWN")); cooldownValue != "" {
		cooldown, err := time.ParseDuration(cooldownValue)
		if err != nil || cooldown <= 0 {
			invalid = append(invalid, "LIBRARY_OVERDUE_COOLDOWN")
		} else {
			cfg.OverdueCooldown = cooldown
		}
	}

	if delayValue := strings.TrimSpace(os.Getenv("LIBRARY_ESCALATION_DELAY")); delayValue != "" {
		delay, err := time.ParseDuration(delayValue)
		if err != nil || delay <= 0 {
			invalid = append(invalid, "LIBRARY_ESCALATION_DELAY")
		} else {
			cfg.EscalationDelay = delay
		}
	}

	if channel := strings.TrimSpace(os.Getenv("LIBRARY_OVERSIGHT_CHANNEL")); channel == "" {
		missing = append(missing, "LIBRARY_OVERSIGHT_CHANNEL")
	} else {
		cfg.OversightChannel = channel
	}

	// Optional; notifications fall back to the log sink without it.
	cfg.NotifyWebhookURL = strings.TrimSpace(os.Getenv("LIBRARY_NOTIFY_WEBHOOK_URL"))

	if timeoutValue := strings.TrimSpace(os.Getenv("LIBRARY_NOTIFY_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "LIBRARY_NOTIFY_TIMEOUT")
		} else {
			cfg.NotifyTimeout = timeout
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
