// AuthSentry - Authentication Threat Detection and Incident Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authsentry

//go:build nats

package eventprocessor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/authsentry/internal/logging"
)

// Consumer reads event batches from a durable JetStream consumer and hands
// each one to a BatchHandler.
type Consumer struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	handler    *BatchHandler
	logger     watermill.LoggerAdapter
}

// NewConsumer connects a JetStream subscriber for cfg.Subject. The
// connection retries in the background, so an unreachable server does not
// fail construction.
func NewConsumer(cfg SubscriberConfig, handler *BatchHandler, logger *slog.Logger) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	if logger == nil {
		logger = logging.NewSlogLogger()
	}
	wmLogger := watermill.NewSlogLogger(logger)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				wmLogger.Error("Consumer disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			wmLogger.Info("Consumer reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	autoProvision := true
	if cfg.StreamName != "" {
		subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))
		autoProvision = false
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    autoProvision,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Consumer{
		subscriber: sub,
		config:     cfg,
		handler:    handler,
		logger:     wmLogger,
	}, nil
}

// Run consumes until ctx is cancelled or the subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.config.Subject)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.config.Subject, err)
	}

	c.logger.Info("Consuming event batches", watermill.LogFields{
		"subject": c.config.Subject,
		"durable": c.config.DurableName,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	msgCtx := logging.ContextWithNewCorrelationID(ctx)
	if err := c.handler.Handle(msgCtx, msg.UUID, msg.Payload); err != nil {
		c.logger.Error("Event batch failed, requesting redelivery", err, watermill.LogFields{
			"message_uuid": msg.UUID,
			"subject":      c.config.Subject,
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

// Close closes the underlying subscriber.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}
