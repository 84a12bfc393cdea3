// Package events mirrors room broadcasts to Redis so other services can
// observe a campaign without holding a socket into the hub.
package events

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/aethoria/campaign-backend/internal/protocol"
)

// Publisher receives every event a room broadcasts. Publish is best-effort;
// rooms log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, campaignID string, ev protocol.Event) error
}

// NopPublisher is used when no Redis URL is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, protocol.Event) error { return nil }

// RedisPublisher publishes events to the campaign:<id> channel.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(ctx context.Context, redisURL string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{rdb: rdb}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, campaignID string, ev protocol.Event) error {
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, ChannelFor(campaignID), payload).Err()
}

func (p *RedisPublisher) Close() error { return p.rdb.Close() }

// ChannelFor names the pub/sub channel for one campaign.
func ChannelFor(campaignID string) string {
	return "campaign:" + campaignID
}
