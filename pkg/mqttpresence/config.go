// Package mqttpresence provides a presence.Fetcher backed by an MQTT broker.
// Presentities are addressed as "mqtt:<id>" uris; the fetcher subscribes to
// "<prefix>/<id>/presence" and "<prefix>/<id>/note" topics and republishes
// retained or live broker payloads as presence and note events.
package mqttpresence

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all necessary configuration for the Paho MQTT client behind
// the fetcher. It defines connection parameters and security settings.
type Config struct {
	// BrokerURL is the full URL of the MQTT broker to connect to.
	// Example: "tls://mqtt.example.com:8883"
	BrokerURL string
	// TopicPrefix is the first segment of every presence topic. A fetcher
	// with prefix "presence" watches "presence/<id>/presence" and
	// "presence/<id>/note". Must not contain '/'.
	TopicPrefix string
	// ClientIDPrefix is a prefix for the MQTT client ID. A unique suffix is
	// automatically added to ensure client uniqueness, which is required by
	// most brokers.
	ClientIDPrefix string
	// Username for authenticating with the MQTT broker.
	Username string
	// Password for authenticating with the MQTT broker.
	Password string
	// KeepAlive is the interval at which the client sends keep-alive pings.
	KeepAlive time.Duration
	// ConnectTimeout is the timeout for the initial connection attempt.
	ConnectTimeout time.Duration
	// ReconnectWaitMax is the maximum time to wait between reconnect attempts.
	ReconnectWaitMax time.Duration
	// SubscribeTimeout bounds each subscribe/unsubscribe round-trip.
	SubscribeTimeout time.Duration
	// CACertFile is an optional path to a CA certificate file for verifying
	// the broker's certificate.
	CACertFile string
	// ClientCertFile is an optional path to a client certificate file for
	// mTLS authentication.
	ClientCertFile string
	// ClientKeyFile is an optional path to a client key file for mTLS
	// authentication.
	ClientKeyFile string
	// InsecureSkipVerify skips TLS certificate verification.
	// This is NOT recommended for production environments.
	InsecureSkipVerify bool
}

// Env constants for overriding Mqtt settings
const (
	MqttSkipVerify            = "MQTT_INSECURE_SKIP_VERIFY"
	MqttKeepAliveSeconds      = "MQTT_KEEP_ALIVE_SECONDS"
	MqttConnectTimeoutSeconds = "MQTT_CONNECT_TIMEOUT_SECONDS"
)

// LoadConfigWithEnv populates timeouts and keep-alive intervals with
// sensible defaults, overridable through environment variables. BrokerURL
// and credentials must be configured programmatically.
func LoadConfigWithEnv() *Config {
	cfg := &Config{
		TopicPrefix:      "presence",
		ClientIDPrefix:   "presence-fetcher-",
		KeepAlive:        60 * time.Second,
		ConnectTimeout:   10 * time.Second,
		ReconnectWaitMax: 120 * time.Second,
		SubscribeTimeout: 5 * time.Second,
	}
	if skipVerify := os.Getenv(MqttSkipVerify); skipVerify == "true" {
		cfg.InsecureSkipVerify = true
	}

	// Parse durations if set in env, otherwise use defaults
	if ka := os.Getenv(MqttKeepAliveSeconds); ka != "" {
		s, err := time.ParseDuration(ka + "s")
		if err == nil {
			cfg.KeepAlive = s
		} else {
			log.Printf("mqttpresence: error parsing keepAlive seconds: %s, using default", err)
		}
	}
	if ct := os.Getenv(MqttConnectTimeoutSeconds); ct != "" {
		s, err := time.ParseDuration(ct + "s")
		if err == nil {
			cfg.ConnectTimeout = s
		} else {
			log.Printf("mqttpresence: error parsing connect timeout seconds: %s, using default", err)
		}
	}

	return cfg
}
