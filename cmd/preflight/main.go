// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/mqttprobe/internal/config"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fail(err.Error())
	}

	if len(cfg.AdminAPIKeys) == 0 {
		fail("ADMIN_API_KEYS is empty (admin routes are open).")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty (read routes accept admin keys only, or anything if no keys are set).")
	}
	for _, name := range []string{"ADMIN_API_KEYS", "PUBLIC_API_KEYS"} {
		if strings.Contains(os.Getenv(name), " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	ok("API_ADDR=" + cfg.Addr)

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty: API will use in-memory stores.")
	} else {
		ok("DATABASE_URL present")
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty: CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if cfg.SlackWebhookURL == "" {
		warn("SLACK_WEBHOOK_URL empty: alerts go to the log only.")
	} else {
		ok("SLACK_WEBHOOK_URL present")
	}

	if cfg.MQTTURL != "" {
		ok("MQTT_URL=" + cfg.MQTTURL)
	}
	if cfg.MQTTTLSEnabled {
		for name, path := range map[string]string{
			"MQTT_TLS_CA_FILE":   cfg.MQTTCAFile,
			"MQTT_TLS_CERT_FILE": cfg.MQTTCertFile,
			"MQTT_TLS_KEY_FILE":  cfg.MQTTKeyFile,
		} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				fail(fmt.Sprintf("%s: %v", name, err))
			} else {
				ok(name + "=" + path)
			}
		}
		if cfg.MQTTRejectUnauthorized != nil && !*cfg.MQTTRejectUnauthorized {
			warn("MQTT_TLS_REJECT_UNAUTHORIZED=false: broker certificates are not verified.")
		}
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
