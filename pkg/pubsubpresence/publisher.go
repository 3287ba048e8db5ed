// Package pubsubpresence provides a presence.Publisher that broadcasts the
// local user's presence snapshot to a Google Cloud Pub/Sub topic. Each
// snapshot is published fire-and-forget: downstream consumers (other
// devices, a status page) treat every message as the full current state.
package pubsubpresence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/illmade-knight/go-presence/pkg/presence"
)

// Config holds configuration for the Pub/Sub presence publisher.
type Config struct {
	ProjectID       string
	TopicID         string
	CredentialsFile string // Optional
	// TopicExistsTimeout bounds the topic existence check at construction.
	TopicExistsTimeout time.Duration
	// PublishConfirmationTimeout bounds the wait for each publish result.
	PublishConfirmationTimeout time.Duration
}

// NewConfigDefaults provides a config with sensible defaults.
func NewConfigDefaults() *Config {
	return &Config{
		TopicExistsTimeout:         15 * time.Second,
		PublishConfirmationTimeout: 20 * time.Second,
	}
}

// NewClient creates a Pub/Sub client for the configured project, applying
// the credentials file when one is configured.
func NewClient(ctx context.Context, cfg *Config) (*pubsub.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client for project %s: %w", cfg.ProjectID, err)
	}
	return client, nil
}

// envelope is the wire form of one published snapshot.
type envelope struct {
	DisplayName string    `json:"displayName"`
	Presence    string    `json:"presence"`
	Note        string    `json:"note"`
	PublishedAt time.Time `json:"publishedAt"`
}

func newEnvelope(details presence.Details, now time.Time) envelope {
	return envelope{
		DisplayName: details.DisplayName,
		Presence:    details.Presence,
		Note:        details.Note,
		PublishedAt: now.UTC(),
	}
}

// Publisher implements presence.Publisher on top of a Pub/Sub topic.
type Publisher struct {
	topic          *pubsub.Topic
	logger         zerolog.Logger
	confirmTimeout time.Duration
	wg             sync.WaitGroup
}

// NewPublisher creates a new Publisher. It validates the topic's existence
// before returning a functional publisher.
func NewPublisher(ctx context.Context, cfg *Config, client *pubsub.Client, logger zerolog.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil for publisher")
	}

	topic := client.Topic(cfg.TopicID)
	existsCtx, cancel := context.WithTimeout(ctx, cfg.TopicExistsTimeout)
	defer cancel()
	exists, err := topic.Exists(existsCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", cfg.TopicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", cfg.TopicID)
	}

	logger.Info().Str("topic_id", cfg.TopicID).Msg("Pub/Sub presence publisher initialized successfully.")
	return &Publisher{
		topic:          topic,
		logger:         logger.With().Str("component", "PubsubPresencePublisher").Str("topic_id", cfg.TopicID).Logger(),
		confirmTimeout: cfg.PublishConfirmationTimeout,
	}, nil
}

// Publish marshals the snapshot and hands it to the topic. Failures are
// logged from a background confirmation goroutine and never surfaced: the
// publication path is best-effort end to end.
func (p *Publisher) Publish(details presence.Details) {
	payload, err := json.Marshal(newEnvelope(details, time.Now()))
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to marshal presence snapshot for publishing.")
		return
	}

	res := p.topic.Publish(context.Background(), &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"presence": details.Presence,
		},
	})

	p.wg.Add(1)
	go p.confirmPublish(res)
}

// confirmPublish waits for the result of a single publish operation.
func (p *Publisher) confirmPublish(res *pubsub.PublishResult) {
	defer p.wg.Done()
	getCtx, cancel := context.WithTimeout(context.Background(), p.confirmTimeout)
	defer cancel()

	msgID, err := res.Get(getCtx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to publish presence snapshot.")
		return
	}
	p.logger.Debug().Str("pubsub_msg_id", msgID).Msg("Presence snapshot published successfully.")
}

// Stop flushes outstanding messages and stops the topic, respecting the
// provided context's timeout.
func (p *Publisher) Stop(ctx context.Context) error {
	p.logger.Info().Msg("Stopping Pub/Sub presence publisher...")

	confirmDone := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(confirmDone)
	}()
	select {
	case <-confirmDone:
	case <-ctx.Done():
		p.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for publish confirmations.")
		return ctx.Err()
	}

	stopDone := make(chan struct{})
	go func() {
		p.topic.Stop()
		close(stopDone)
	}()
	select {
	case <-stopDone:
		p.logger.Info().Msg("Pub/Sub topic stopped.")
	case <-ctx.Done():
		p.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for Pub/Sub topic to flush and stop.")
		return ctx.Err()
	}
	return nil
}
