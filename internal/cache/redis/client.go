package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/pkg/logger"
)

// Client caches compiled investigation reports keyed by query hash. The cache
// is ephemeral and TTL-bounded; it is not a system of record.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetReport(ctx context.Context, queryHash string, report *investigation.Report, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := c.client.Set(ctx, reportKey(queryHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	logger.Debug("Report cached", zap.String("query_hash", queryHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetReport(ctx context.Context, queryHash string) (*investigation.Report, bool, error) {
	data, err := c.client.Get(ctx, reportKey(queryHash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report investigation.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}

	logger.Debug("Report cache hit", zap.String("query_hash", queryHash))
	return &report, true, nil
}

func reportKey(queryHash string) string {
	return fmt.Sprintf("report:%s", queryHash)
}
