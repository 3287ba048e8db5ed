package mqttpresence

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-presence/pkg/presence"
)

// Fetcher implements presence.Fetcher over an MQTT broker. The presence Core
// guarantees one Fetch/Unfetch pair per uri, so each Fetch maps directly to a
// pair of topic subscriptions. Active subscriptions are replayed by the
// on-connect handler after a broker reconnect.
type Fetcher struct {
	pahoClient mqtt.Client
	logger     zerolog.Logger
	cfg        *Config

	mu     sync.Mutex
	topics map[string]byte // active topic -> QoS, replayed on reconnect

	presenceCbs presence.CallbackList[func(uri, presence string)]
	noteCbs     presence.CallbackList[func(uri, note string)]

	closeOnce sync.Once
}

// NewFetcher creates a Fetcher and starts connecting to the broker. An
// initial connection failure is logged, not returned: the Paho client keeps
// retrying in the background and the on-connect handler restores any
// subscriptions requested in the meantime.
func NewFetcher(cfg *Config, logger zerolog.Logger) (*Fetcher, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL is required")
	}
	if cfg.TopicPrefix == "" || strings.ContainsRune(cfg.TopicPrefix, '/') {
		return nil, fmt.Errorf("topic prefix %q must be a single non-empty segment", cfg.TopicPrefix)
	}

	f := &Fetcher{
		logger: logger.With().Str("component", "MqttPresenceFetcher").Logger(),
		cfg:    cfg,
		topics: make(map[string]byte),
	}
	f.pahoClient = mqtt.NewClient(f.createMqttOptions())

	f.logger.Info().Str("broker", cfg.BrokerURL).Msg("Attempting to connect to MQTT broker...")
	if token := f.pahoClient.Connect(); token.WaitTimeout(cfg.ConnectTimeout) && token.Error() != nil {
		f.logger.Error().Err(token.Error()).Msg("Failed to connect to MQTT broker on startup. The Paho client will continue to retry in the background.")
	} else if token.Error() == nil {
		f.logger.Info().Msg("Initial connection to MQTT broker successful.")
	}
	return f, nil
}

// SupportsURI reports whether the uri carries the "mqtt:" scheme with a
// routable id.
func (f *Fetcher) SupportsURI(uri string) bool {
	_, err := idFromURI(uri)
	return err == nil
}

// Fetch subscribes to the uri's presence and note topics.
func (f *Fetcher) Fetch(uri string) {
	presenceTopic, noteTopic, err := topicsForURI(f.cfg.TopicPrefix, uri)
	if err != nil {
		f.logger.Warn().Err(err).Str("uri", uri).Msg("Cannot map uri to topics, ignoring fetch.")
		return
	}

	f.mu.Lock()
	f.topics[presenceTopic] = 1
	f.topics[noteTopic] = 1
	f.mu.Unlock()

	f.subscribe(presenceTopic)
	f.subscribe(noteTopic)
}

// Unfetch unsubscribes from the uri's topics.
func (f *Fetcher) Unfetch(uri string) {
	presenceTopic, noteTopic, err := topicsForURI(f.cfg.TopicPrefix, uri)
	if err != nil {
		return
	}

	f.mu.Lock()
	delete(f.topics, presenceTopic)
	delete(f.topics, noteTopic)
	f.mu.Unlock()

	if !f.pahoClient.IsConnected() {
		return
	}
	if token := f.pahoClient.Unsubscribe(presenceTopic, noteTopic); token.WaitTimeout(f.cfg.SubscribeTimeout) && token.Error() != nil {
		f.logger.Warn().Err(token.Error()).Str("uri", uri).Msg("Failed to unsubscribe from presence topics.")
	}
}

// OnPresence registers a callback for presence updates.
func (f *Fetcher) OnPresence(fn func(uri, presence string)) (cancel func()) {
	return f.presenceCbs.Add(fn)
}

// OnNote registers a callback for status-note updates.
func (f *Fetcher) OnNote(fn func(uri, note string)) (cancel func()) {
	return f.noteCbs.Add(fn)
}

// IsConnected returns the connection status of the underlying Paho client.
// This is useful for integration tests to wait until the fetcher is ready.
func (f *Fetcher) IsConnected() bool {
	return f.pahoClient != nil && f.pahoClient.IsConnected()
}

// Close disconnects from the broker. Registered callbacks receive nothing
// after Close returns.
func (f *Fetcher) Close() error {
	f.closeOnce.Do(func() {
		f.logger.Info().Msg("Closing MQTT presence fetcher...")
		if f.pahoClient != nil && f.pahoClient.IsConnected() {
			f.pahoClient.Disconnect(500) // 500ms grace period
			f.logger.Info().Msg("Paho MQTT client disconnected.")
		}
	})
	return nil
}

func (f *Fetcher) subscribe(topic string) {
	if !f.pahoClient.IsConnected() {
		// The on-connect handler replays f.topics once the broker is back.
		return
	}
	token := f.pahoClient.Subscribe(topic, 1, f.handleMessage)
	go func() {
		if token.WaitTimeout(f.cfg.SubscribeTimeout) && token.Error() != nil {
			f.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to subscribe to presence topic.")
		}
	}()
}

// handleMessage converts a broker message into a presence or note event.
func (f *Fetcher) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	uri, leaf, err := uriFromTopic(f.cfg.TopicPrefix, msg.Topic())
	if err != nil {
		f.logger.Debug().Err(err).Str("topic", msg.Topic()).Msg("Ignoring message on unrecognized topic.")
		return
	}
	value := strings.TrimSpace(string(msg.Payload()))

	switch leaf {
	case leafPresence:
		f.presenceCbs.Each(func(fn func(uri, presence string)) { fn(uri, value) })
	case leafNote:
		f.noteCbs.Each(func(fn func(uri, note string)) { fn(uri, value) })
	}
}

// MessageHandlerForTest returns the internal message handler for unit testing.
func (f *Fetcher) MessageHandlerForTest() mqtt.MessageHandler {
	return f.handleMessage
}

// createMqttOptions assembles the Paho client options from the config.
func (f *Fetcher) createMqttOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(f.cfg.BrokerURL)
	uniqueSuffix := time.Now().UnixNano() % 1000000
	opts.SetClientID(fmt.Sprintf("%s%d", f.cfg.ClientIDPrefix, uniqueSuffix))
	opts.SetUsername(f.cfg.Username)
	opts.SetPassword(f.cfg.Password)
	opts.SetKeepAlive(f.cfg.KeepAlive)
	opts.SetConnectTimeout(f.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(f.cfg.ReconnectWaitMax)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		f.logger.Info().Str("broker", f.cfg.BrokerURL).Msg("Paho client connected to MQTT broker.")
		f.mu.Lock()
		topics := make(map[string]byte, len(f.topics))
		for topic, qos := range f.topics {
			topics[topic] = qos
		}
		f.mu.Unlock()
		if len(topics) == 0 {
			return
		}
		token := client.SubscribeMultiple(topics, f.handleMessage)
		go func() {
			if token.WaitTimeout(f.cfg.SubscribeTimeout) && token.Error() != nil {
				f.logger.Error().Err(token.Error()).Int("topic_count", len(topics)).Msg("Failed to restore presence topic subscriptions.")
			} else {
				f.logger.Info().Int("topic_count", len(topics)).Msg("Restored presence topic subscriptions.")
			}
		}()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		f.logger.Error().Err(err).Msg("Paho client lost MQTT connection.")
	})

	if strings.HasPrefix(strings.ToLower(f.cfg.BrokerURL), "tls://") {
		tlsConfig, err := newTLSConfig(f.cfg)
		if err != nil {
			f.logger.Error().Err(err).Msg("Failed to create TLS config, proceeding without it.")
		} else {
			opts.SetTLSConfig(tlsConfig)
			f.logger.Info().Msg("TLS configured for MQTT client.")
		}
	}
	return opts
}

// newTLSConfig is a helper to create a tls.Config.
func newTLSConfig(cfg *Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert file %s: %w", cfg.CACertFile, err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA cert from %s", cfg.CACertFile)
		}
		tlsConfig.RootCAs = caCertPool
	}
	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate/key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
