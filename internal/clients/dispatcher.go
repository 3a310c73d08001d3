package clients

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// OutboundCommunication is the "send communication" request handed to the
// delivery collaborator. The correlation key tags the outbound message so an
// eventual inbound reply can be linked back to the originating event.
type OutboundCommunication struct {
	AccountID      string    `json:"account_id"`
	Recipient      string    `json:"recipient"`
	Channel        string    `json:"channel"`
	Subject        string    `json:"subject,omitempty"`
	Body           string    `json:"body"`
	CorrelationKey string    `json:"correlation_key"`
	QueuedAt       time.Time `json:"queued_at"`
}

const outboundQueueKey = "outbound_communications"

// Dispatcher enqueues outbound communications onto a Redis list consumed by
// the delivery service. Delivery itself, and reporting replies back, is the
// consumer's responsibility.
type Dispatcher struct {
	redis *RedisClient
}

func NewDispatcher(redis *RedisClient) *Dispatcher {
	return &Dispatcher{redis: redis}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg OutboundCommunication) error {
	if d.redis == nil {
		return errors.New("redis client not configured")
	}
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return d.redis.LPush(ctx, outboundQueueKey, string(data))
}
