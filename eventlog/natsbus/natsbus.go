// Package natsbus publishes appended grainfsm events onto NATS
// subjects, implementing eventlog.StreamPublisher, grounded on potter's
// NATSEventAdapter (subject-per-aggregate publish with bounded retry).
package natsbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// RetryConfig bounds Publish's retry loop on a failed NATS publish.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig is a modest 3-attempt exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Publisher publishes to subject "<subjectPrefix>.<namespace>.<streamID>".
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
	retry         RetryConfig
}

// New constructs a Publisher over an already-connected *nats.Conn.
func New(conn *nats.Conn, subjectPrefix string) *Publisher {
	if subjectPrefix == "" {
		subjectPrefix = "grainfsm"
	}
	return &Publisher{conn: conn, subjectPrefix: subjectPrefix, retry: DefaultRetryConfig()}
}

// WithRetryConfig overrides DefaultRetryConfig.
func (p *Publisher) WithRetryConfig(cfg RetryConfig) *Publisher {
	p.retry = cfg
	return p
}

// Publish sends event's JSON payload on this publisher's subject,
// retrying transient publish failures with exponential backoff.
func (p *Publisher) Publish(ctx context.Context, namespace, streamID string, event fsmtype.StoredEvent) error {
	subject := fmt.Sprintf("%s.%s.%s", p.subjectPrefix, namespace, streamID)

	delay := p.retry.InitialDelay
	var lastErr error
	for attempt := 0; attempt < p.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * p.retry.BackoffMultiplier)
			if delay > p.retry.MaxDelay {
				delay = p.retry.MaxDelay
			}
		}

		lastErr = p.conn.Publish(subject, event.Payload)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("natsbus: publish to %s failed after %d attempts: %w", subject, p.retry.MaxAttempts, lastErr)
}
