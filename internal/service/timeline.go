package service

import (
	"context"
	"encoding/json"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"
)

const (
	timelineCachePrefix = "timeline:"
	timelineCacheTTL    = 5 * time.Minute
)

// TimelineService is the read side of the ledger. It performs no mutation
// and is safe to call concurrently with any writer; writers invalidate the
// cache after each commit.
type TimelineService struct {
	store LedgerStore
	redis *clients.RedisClient
}

func NewTimelineService(store LedgerStore, redis *clients.RedisClient) *TimelineService {
	return &TimelineService{
		store: store,
		redis: redis,
	}
}

// cachedEvent is the Redis representation of a ledger event. The payload is
// kept as raw JSON and decoded back through its module tag.
type cachedEvent struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Module         string          `json:"module"`
	Action         string          `json:"action"`
	Actor          string          `json:"actor"`
	Status         string          `json:"status"`
	Details        string          `json:"details"`
	CorrelationKey *string         `json:"correlation_key,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	ReplyContent   *string         `json:"reply_content,omitempty"`
	ReplyAt        *time.Time      `json:"reply_at,omitempty"`
	ReplyStatus    *string         `json:"reply_status,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toCached(events []domain.ActivityEvent) ([]byte, error) {
	out := make([]cachedEvent, 0, len(events))
	for _, ev := range events {
		raw, err := domain.EncodePayload(ev.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, cachedEvent{
			ID:             ev.ID,
			AccountID:      ev.AccountID,
			OccurredAt:     ev.OccurredAt,
			Module:         string(ev.Module),
			Action:         ev.Action,
			Actor:          ev.Actor,
			Status:         string(ev.Status),
			Details:        ev.Details,
			CorrelationKey: ev.CorrelationKey,
			Payload:        raw,
			ReplyContent:   ev.ReplyContent,
			ReplyAt:        ev.ReplyAt,
			ReplyStatus:    ev.ReplyStatus,
			CreatedAt:      ev.CreatedAt,
		})
	}
	return json.Marshal(out)
}

func fromCached(data []byte) ([]domain.ActivityEvent, error) {
	var cached []cachedEvent
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	events := make([]domain.ActivityEvent, 0, len(cached))
	for _, c := range cached {
		payload, err := domain.DecodePayload(domain.Module(c.Module), c.Payload)
		if err != nil {
			return nil, err
		}
		events = append(events, domain.ActivityEvent{
			ID:             c.ID,
			AccountID:      c.AccountID,
			OccurredAt:     c.OccurredAt,
			Module:         domain.Module(c.Module),
			Action:         c.Action,
			Actor:          c.Actor,
			Status:         domain.EventStatus(c.Status),
			Details:        c.Details,
			CorrelationKey: c.CorrelationKey,
			Payload:        payload,
			ReplyContent:   c.ReplyContent,
			ReplyAt:        c.ReplyAt,
			ReplyStatus:    c.ReplyStatus,
			CreatedAt:      c.CreatedAt,
		})
	}
	return events, nil
}

// invalidateTimeline drops the cached timeline after a write. Shared by all
// workflow services; best-effort, a stale miss only costs one DB read.
func invalidateTimeline(ctx context.Context, redis *clients.RedisClient, accountID string) {
	if redis == nil {
		return
	}
	_ = redis.Del(ctx, timelineCachePrefix+accountID)
}

// GetTimeline returns the account ledger in display order: occurredAt
// descending, ties broken by insertion order.
func (s *TimelineService) GetTimeline(ctx context.Context, accountID string) ([]domain.ActivityEvent, error) {
	cacheKey := timelineCachePrefix + accountID

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, cacheKey); err == nil {
			if events, err := fromCached([]byte(data)); err == nil {
				return events, nil
			}
		}
	}

	events, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := toCached(events); err == nil {
			_ = s.redis.Set(ctx, cacheKey, string(data), timelineCacheTTL)
		}
	}

	return events, nil
}

// GetThread returns the outbound communication event a correlation key
// points at, with any attached reply on it.
func (s *TimelineService) GetThread(ctx context.Context, correlationKey string) (*domain.ActivityEvent, error) {
	return s.store.GetThread(ctx, correlationKey)
}
