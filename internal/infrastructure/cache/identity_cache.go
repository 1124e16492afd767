// Package cache keeps resolved identities in Redis.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/policy"
	"github.com/oksasatya/course-enrollment/pkg/helpers"
)

type cachedIdentity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type IdentityCache struct {
	rdb *redis.Client
}

func NewIdentityCache(rdb *redis.Client) *IdentityCache {
	return &IdentityCache{rdb: rdb}
}

func identityKey(userID string) string {
	return "identity:user:" + userID
}

// Get treats an entry with an unrecognised role as a miss.
func (c *IdentityCache) Get(ctx context.Context, userID string) (policy.Principal, bool, error) {
	var v cachedIdentity
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, identityKey(userID), &v)
	if err != nil || !ok {
		return policy.Principal{}, false, err
	}
	role, valid := entity.ParseRole(v.Role)
	if !valid || v.UserID != userID {
		return policy.Principal{}, false, nil
	}
	return policy.Principal{UserID: v.UserID, Role: role}, true, nil
}

func (c *IdentityCache) Set(ctx context.Context, p policy.Principal, ttl time.Duration) error {
	return helpers.RedisSetJSON(ctx, c.rdb, identityKey(p.UserID), cachedIdentity{UserID: p.UserID, Role: string(p.Role)}, ttl)
}

