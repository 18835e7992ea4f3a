package session

import (
	"time"

	"geo-cluster/internal/logger"
	"geo-cluster/internal/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Registry：会话表，空闲超过 TTL 的会话被淘汰并停止其后台播放
type Registry struct {
	c    *cache.Cache
	opts func() Options
}

// NewRegistry：opts 在每次创建会话时调用，便于点集热更新
func NewRegistry(ttl time.Duration, opts func() Options) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
		metrics.SessionsActive.Dec()
		logger.L().Debug("session_evicted", "sid", id)
	})
	return &Registry{c: c, opts: opts}
}

func (r *Registry) Create() *Session {
	id := uuid.New().String()
	s := New(id, r.opts())
	r.c.SetDefault(id, s)
	metrics.SessionsActive.Inc()
	logger.L().Info("session_created", "sid", id)
	return s
}

// Get：命中时顺延过期时间
func (r *Registry) Get(id string) (*Session, bool) {
	v, ok := r.c.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	r.c.SetDefault(id, s)
	return s, true
}

func (r *Registry) Delete(id string) { r.c.Delete(id) }

func (r *Registry) Len() int { return r.c.ItemCount() }

// Close：进程退出时停止全部会话
func (r *Registry) Close() {
	for id := range r.c.Items() {
		r.c.Delete(id)
	}
}
