// 包 resultcache：一次性穷举结果的 Redis 缓存
//
// 背景：C(50,k) 的穷举在 k 较大时耗时明显，同一点集与 k 的结果可以跨会话复用
// 约束：Redis 不可用时按未命中处理，不影响主流程
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"geo-cluster/internal/kcenter"
	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "geocluster:kcenter:"

type Redis struct {
	rc  *redis.Client
	ttl time.Duration
}

// New：rc 为 nil 时返回的缓存始终未命中
func New(rc *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{rc: rc, ttl: ttl}
}

func Key(fingerprint uint64, k int) string {
	return fmt.Sprintf("%s%016x:%d", keyPrefix, fingerprint, k)
}

func (c *Redis) Get(ctx context.Context, fingerprint uint64, k int) (kcenter.Result, bool) {
	var out kcenter.Result
	if c == nil || c.rc == nil {
		metrics.ResultCacheMissesTotal.Inc()
		return out, false
	}
	key := Key(fingerprint, k)
	s, err := c.rc.Get(ctx, key).Result()
	if err != nil || s == "" {
		if err != nil && err != redis.Nil {
			logger.L().Debug("result_cache_get_error", "key", key, "err", err)
		}
		metrics.ResultCacheMissesTotal.Inc()
		return out, false
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		logger.L().Debug("result_cache_decode_error", "key", key, "err", err)
		metrics.ResultCacheMissesTotal.Inc()
		return kcenter.Result{}, false
	}
	metrics.ResultCacheHitsTotal.Inc()
	logger.L().Debug("result_cache_hit", "key", key)
	return out, true
}

func (c *Redis) Put(ctx context.Context, fingerprint uint64, k int, r kcenter.Result) {
	if c == nil || c.rc == nil {
		return
	}
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	key := Key(fingerprint, k)
	if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
		logger.L().Debug("result_cache_set_error", "key", key, "err", err)
	}
}
