package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

const auditKeyPrefix = "chainaudit:audit:"

type kvClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// AuditCache keeps the latest composed audit result per token for the query surface.
type AuditCache struct {
	client kvClient
	ttl    time.Duration
}

func NewAuditCache(client kvClient, ttl time.Duration) *AuditCache {
	return &AuditCache{client: client, ttl: ttl}
}

func auditKey(token model.Address) string {
	return auditKeyPrefix + strings.ToLower(token.Hex())
}

func (c *AuditCache) Put(ctx context.Context, res *model.AuditResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal audit result: %w", err)
	}
	if err := c.client.Set(ctx, auditKey(res.Token.Address), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache audit result: %w", err)
	}
	return nil
}

// Latest returns the cached result for token, or false when nothing is cached.
func (c *AuditCache) Latest(ctx context.Context, token model.Address) (*model.AuditResult, bool, error) {
	b, err := c.client.Get(ctx, auditKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached audit result: %w", err)
	}

	var res model.AuditResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, false, fmt.Errorf("decode cached audit result: %w", err)
	}
	return &res, true, nil
}
