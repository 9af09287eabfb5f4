package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/mqttprobe/internal/broker"
)

type Config struct {
	Addr        string // API bind address, e.g., "127.0.0.1:8080" or ":8080" (Docker)
	LogDir      string
	LogLevel    string
	DatabaseURL string // empty means use in-memory store

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	AllowedOrigins []string
	PublicRPM      int
	PublicBurst    int
	AdminRPM       int
	AdminBurst     int

	CheckInterval       time.Duration // scheduler tick
	MaxConcurrentChecks int
	RetryAttempts       int // 1 means no retry
	RetryBackoff        time.Duration

	SlackWebhookURL string
	AlertCooldown   time.Duration
	AlertOnRecovery bool
	AlertPoll       time.Duration

	// long-lived client used by `cli watch`
	MQTTURL                string
	MQTTUsername           string
	MQTTPassword           string
	MQTTReconnect          time.Duration
	MQTTTLSEnabled         bool
	MQTTRejectUnauthorized *bool // nil: verify
	MQTTCAFile             string
	MQTTCertFile           string
	MQTTKeyFile            string
	MQTTALPN               []string
}

func FromEnv() Config {
	return Config{
		Addr:        env("API_ADDR", "127.0.0.1:8080"),
		LogDir:      env("LOG_DIR", "logs"),
		LogLevel:    env("LOG_LEVEL", "info"),
		DatabaseURL: env("DATABASE_URL", ""),

		PublicAPIKeys:  envList("PUBLIC_API_KEYS"),
		AdminAPIKeys:   envList("ADMIN_API_KEYS"),
		AllowedOrigins: envList("ALLOWED_ORIGINS"),
		PublicRPM:      envInt("PUBLIC_RPM", 60),
		PublicBurst:    envInt("PUBLIC_BURST", 20),
		AdminRPM:       envInt("ADMIN_RPM", 30),
		AdminBurst:     envInt("ADMIN_BURST", 10),

		CheckInterval:       envMillis("CHECK_INTERVAL_MS", 5*time.Second),
		MaxConcurrentChecks: envInt("MAX_CONCURRENT_CHECKS", 8),
		RetryAttempts:       envInt("RETRY_ATTEMPTS", 1),
		RetryBackoff:        envMillis("RETRY_BACKOFF_MS", 300*time.Millisecond),

		SlackWebhookURL: env("SLACK_WEBHOOK_URL", ""),
		AlertCooldown:   envMillis("ALERT_COOLDOWN_MS", 5*time.Minute),
		AlertOnRecovery: envBool("ALERT_ON_RECOVERY", true),
		AlertPoll:       envMillis("ALERT_POLL_MS", 10*time.Second),

		MQTTURL:                env("MQTT_URL", ""),
		MQTTUsername:           env("MQTT_USERNAME", ""),
		MQTTPassword:           os.Getenv("MQTT_PASSWORD"),
		MQTTReconnect:          envMillis("MQTT_RECONNECT_MS", broker.DefaultReconnectPeriod),
		MQTTTLSEnabled:         envBool("MQTT_TLS_ENABLED", false),
		MQTTRejectUnauthorized: envOptBool("MQTT_TLS_REJECT_UNAUTHORIZED"),
		MQTTCAFile:             env("MQTT_TLS_CA_FILE", ""),
		MQTTCertFile:           env("MQTT_TLS_CERT_FILE", ""),
		MQTTKeyFile:            env("MQTT_TLS_KEY_FILE", ""),
		MQTTALPN:               envList("MQTT_TLS_ALPN"),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Addr) == "" {
		err = multierr.Append(err, errors.New("API_ADDR is required"))
	}
	for _, kv := range []struct {
		key string
		n   int
	}{
		{"PUBLIC_RPM", c.PublicRPM},
		{"PUBLIC_BURST", c.PublicBurst},
		{"ADMIN_RPM", c.AdminRPM},
		{"ADMIN_BURST", c.AdminBurst},
		{"MAX_CONCURRENT_CHECKS", c.MaxConcurrentChecks},
		{"RETRY_ATTEMPTS", c.RetryAttempts},
	} {
		if kv.n < 1 {
			err = multierr.Append(err, fmt.Errorf("%s must be >= 1, got %d", kv.key, kv.n))
		}
	}
	if c.CheckInterval <= 0 {
		err = multierr.Append(err, errors.New("CHECK_INTERVAL_MS must be > 0"))
	}
	if c.RetryBackoff < 0 {
		err = multierr.Append(err, errors.New("RETRY_BACKOFF_MS must be >= 0"))
	}
	if c.AlertPoll <= 0 {
		err = multierr.Append(err, errors.New("ALERT_POLL_MS must be > 0"))
	}
	if (c.MQTTCertFile == "") != (c.MQTTKeyFile == "") {
		err = multierr.Append(err, errors.New("MQTT_TLS_CERT_FILE and MQTT_TLS_KEY_FILE must be set together"))
	}
	return err
}

// Broker is the long-lived client configuration taken from the MQTT_* keys.
func (c Config) Broker() broker.SecureConfig {
	return broker.SecureConfig{
		URL:                c.MQTTURL,
		Username:           c.MQTTUsername,
		Password:           c.MQTTPassword,
		ReconnectPeriod:    c.MQTTReconnect,
		TLSEnabled:         c.MQTTTLSEnabled,
		RejectUnauthorized: c.MQTTRejectUnauthorized,
		CAFile:             c.MQTTCAFile,
		CertFile:           c.MQTTCertFile,
		KeyFile:            c.MQTTKeyFile,
		ALPNProtocols:      c.MQTTALPN,
	}
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envMillis(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

func envBool(key string, fallback bool) bool {
	b, ok := parseBool(os.Getenv(key))
	if !ok {
		return fallback
	}
	return b
}

func envOptBool(key string) *bool {
	b, ok := parseBool(os.Getenv(key))
	if !ok {
		return nil
	}
	return &b
}

// envList splits a comma separated value, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
