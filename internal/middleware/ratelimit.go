package middleware

import (
	"net/http"

	"geo-cluster/internal/config"
	"geo-cluster/internal/logger"

	"golang.org/x/time/rate"
)

// 文档注释：令牌桶限流中间件
// 背景：每个操作都会驱动一次聚类步进（穷举求解可能耗时较长），入口限速避免被刷
// 约束：不排队，超限直接返回 429
func RateLimit(qps float64, burst int) func(http.Handler) http.Handler {
	if burst <= 0 {
		burst = int(qps)
		if burst < 1 {
			burst = 1
		}
	}
	lim := rate.NewLimiter(rate.Limit(qps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				logger.L().Debug("rate_limited", "path", r.URL.Path)
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Wrap：按配置决定是否启用限流
func Wrap(cfg config.Config, next http.Handler) http.Handler {
	if !cfg.RateLimitEnabled || cfg.RateLimitQPS <= 0 {
		return next
	}
	return RateLimit(cfg.RateLimitQPS, 0)(next)
}
