package memory

import (
	"context"
	"time"

	"github.com/emperorhan/chainaudit/internal/cache"
	"github.com/emperorhan/chainaudit/internal/domain/model"
)

// ResultCache holds the latest composed audit result per token in process.
// It stands in for the redis AuditCache when redis is disabled.
type ResultCache struct {
	lru *cache.LRU[model.Address, model.AuditResult]
}

// DefaultResultTTL applies when NewResultCache is given a non-positive ttl.
const DefaultResultTTL = time.Hour

func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{
		lru: cache.NewLRU[model.Address, model.AuditResult](capacity, ttl, func(a model.Address) string { return a.Hex() }),
	}
}

func (c *ResultCache) Put(_ context.Context, res *model.AuditResult) error {
	c.lru.Put(res.Token.Address, *res)
	return nil
}

func (c *ResultCache) Latest(_ context.Context, token model.Address) (*model.AuditResult, bool, error) {
	res, ok := c.lru.Get(token)
	if !ok {
		return nil, false, nil
	}
	return &res, true, nil
}
