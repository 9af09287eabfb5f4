package broker

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultReconnectPeriod is used when SecureConfig.ReconnectPeriod is zero.
const DefaultReconnectPeriod = 5 * time.Second

// SecureConfig describes a long-lived client, optionally over TLS.
type SecureConfig struct {
	URL             string
	Username        string
	Password        string
	ReconnectPeriod time.Duration

	TLSEnabled bool
	// RejectUnauthorized turns certificate verification off only when it is
	// explicitly false.
	RejectUnauthorized *bool
	CAFile             string
	// CertFile and KeyFile are loaded only when both are set.
	CertFile      string
	KeyFile       string
	ALPNProtocols []string

	// OnConnect runs after every successful (re)connect, e.g. to subscribe.
	OnConnect mqtt.OnConnectHandler
}

// NewSecureClient returns a client that is already connecting and keeps
// reconnecting on its own. Subscriptions and message handling belong to the
// caller.
func NewSecureClient(cfg SecureConfig, logger *zap.Logger) (mqtt.Client, error) {
	opts, err := secureOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	client := mqtt.NewClient(opts)
	client.Connect()
	return client, nil
}

func secureOptions(cfg SecureConfig, logger *zap.Logger) (*mqtt.ClientOptions, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("mqtt url is required")
	}
	reconnect := cfg.ReconnectPeriod
	if reconnect <= 0 {
		reconnect = DefaultReconnectPeriod
	}

	brokerURL := cfg.URL
	var tlsCfg *tls.Config
	if cfg.TLSEnabled {
		brokerURL = secureScheme(brokerURL)
		var err error
		if tlsCfg, err = clientTLSConfig(cfg); err != nil {
			return nil, err
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(ClientID()).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnect).
		SetMaxReconnectInterval(reconnect).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("mqtt_client_connected", zap.String("url", brokerURL))
			if cfg.OnConnect != nil {
				cfg.OnConnect(c)
			}
		})
	if tlsCfg != nil {
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// secureScheme swaps a plain transport scheme for its TLS variant.
func secureScheme(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "mqtts://" + u
	}
	switch strings.ToLower(scheme) {
	case "mqtt", "tcp":
		return "mqtts://" + rest
	case "ws":
		return "wss://" + rest
	default:
		return u
	}
}

func clientTLSConfig(cfg SecureConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.RejectUnauthorized != nil && !*cfg.RejectUnauthorized,
		NextProtos:         cfg.ALPNProtocols,
	}
	if cfg.CAFile != "" {
		caBytes, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		crt, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}
