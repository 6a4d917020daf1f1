package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the NATS publisher
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	// StreamName enables JetStream publishing into this stream when set
	StreamName    string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS publisher configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "rpsls",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes match events to NATS, through JetStream when a
// stream is configured
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config NATSConfig
}

// NewNATSPublisher connects to NATS and, if configured, ensures the stream
func NewNATSPublisher(ctx context.Context, config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("rpsls-gateway"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	p := &NATSPublisher{nc: nc, config: config}

	if config.StreamName != "" {
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:        config.StreamName,
			Description: "RPSLS match events",
			Subjects:    []string{config.SubjectPrefix + ".room.>"},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      24 * time.Hour,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", config.StreamName, err)
		}
		p.js = js

		log.Info().Str("stream", config.StreamName).Msg("JetStream stream ready")
	}

	return p, nil
}

// Publish sends event on <prefix>.room.<type>
func (p *NATSPublisher) Publish(ctx context.Context, event MatchEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}

	subject := Subject(p.config.SubjectPrefix, event.Type)

	if p.js != nil {
		_, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID.String()))
		if err != nil {
			return fmt.Errorf("publish to JetStream %s: %w", subject, err)
		}
		return nil
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	if errors.Is(err, nats.ErrConnectionClosed) {
		return nil
	}
	return err
}
