// Package redisbus publishes appended grainfsm events onto a Redis
// Stream, implementing eventlog.StreamPublisher, grounded on the
// XADD-based stream adapter pattern used elsewhere in the retrieved
// corpus (potter's messagebus.RedisAdapter).
package redisbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// Publisher publishes to Redis Streams, one stream per (namespace,
// streamID) pair.
type Publisher struct {
	client   *redis.Client
	maxLen   int64
}

// New constructs a Publisher over an already-configured redis.Client.
// maxLen caps each stream's length via XADD's approximate MAXLEN, 0
// meaning unbounded.
func New(client *redis.Client, maxLen int64) *Publisher {
	return &Publisher{client: client, maxLen: maxLen}
}

// Publish appends event to the Redis Stream "<namespace>:<streamID>".
func (p *Publisher) Publish(ctx context.Context, namespace, streamID string, event fsmtype.StoredEvent) error {
	stream := fmt.Sprintf("%s:%s", namespace, streamID)

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"seq":     event.Seq,
			"kind":    event.Kind,
			"payload": string(event.Payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	return p.client.XAdd(ctx, args).Err()
}
