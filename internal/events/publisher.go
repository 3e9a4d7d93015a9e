// Package events publishes voice command events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/metrics"
)

// Publisher publishes command outcomes and server-processing requests to
// separate Kafka topics. With Kafka disabled it only logs.
type Publisher struct {
	writerCommands *kafka.Writer
	writerQA       *kafka.Writer
	principal      string
	topicCommands  string
	topicQA        string
	enabled        bool
	metrics        *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicCommands string
	TopicQA       string
	Principal     string
	Enabled       bool
	Metrics       *metrics.Metrics
}

// New creates a Kafka event publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	// Handle nil config case
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}
	if cfg.Metrics != nil {
		m = cfg.Metrics
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:     cfg.Principal,
			topicCommands: cfg.TopicCommands,
			topicQA:       cfg.TopicQA,
			enabled:       false,
			metrics:       m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCommands", cfg.TopicCommands).
		Str("topicQA", cfg.TopicQA).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCommands: newWriter(cfg.Brokers, cfg.TopicCommands, transport),
		writerQA:       newWriter(cfg.Brokers, cfg.TopicQA, transport),
		principal:      cfg.Principal,
		topicCommands:  cfg.TopicCommands,
		topicQA:        cfg.TopicQA,
		enabled:        true,
		metrics:        m,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool { return p.enabled }

// PublishCommand publishes a command outcome keyed by episode so that one
// episode's commands stay ordered within a partition.
func (p *Publisher) PublishCommand(ctx context.Context, ev models.CommandEvent) error {
	key := ev.EpisodeID
	if key == "" {
		key = ev.CommandID
	}
	return p.publish(ctx, p.writerCommands, p.topicCommands, ev.EventType, key, ev)
}

// PublishServerRequest hands a summarize/explain/question context to external processing.
func (p *Publisher) PublishServerRequest(ctx context.Context, ev models.ServerRequestEvent) error {
	return p.publish(ctx, p.writerQA, p.topicQA, ev.EventType, ev.CommandID, ev)
}

// publish writes one event to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	// Log the event
	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	// Publish to Kafka
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCommands != nil {
		if e := p.writerCommands.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing commands writer")
			err = e
		}
	}
	if p.writerQA != nil {
		if e := p.writerQA.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing qa writer")
			err = e
		}
	}
	return err
}
