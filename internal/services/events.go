package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"testwise-backend/internal/models"
)

// EventPublisher pushes realtime events toward connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event)
}

// RedisEventPublisher publishes events on the per-user pub/sub channel that
// the websocket hub subscribes to.
type RedisEventPublisher struct {
	redis *redis.Client
}

func NewRedisEventPublisher(redisClient *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{redis: redisClient}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("event publish: failed to marshal %s: %v", event.Type, err)
		return
	}

	channel := "user_updates:" + event.UserID.String()
	if err := p.redis.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("event publish: failed to publish %s: %v", event.Type, err)
	}
}

func progressUpdatedEvent(userID uuid.UUID, payload any) models.Event {
	raw, _ := json.Marshal(payload)
	return models.Event{UserID: userID, Type: models.EventProgressUpdated, Payload: raw}
}

func attemptScoredEvent(userID uuid.UUID, payload any) models.Event {
	raw, _ := json.Marshal(payload)
	return models.Event{UserID: userID, Type: models.EventAttemptScored, Payload: raw}
}
