package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jobayadurrasid/Smart-Campus/pkg/response"
)

// RateStore 分布式限流存储（Redis 滑动窗口）
type RateStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 速率限制中间件，按登录人员 + 路由计数
// limit: 窗口内允许的最大请求数
// window: 滑动窗口时长
// store 为 nil 或出错时降级为进程内令牌桶，保证限流不因 Redis 故障失效
func RateLimit(store RateStore, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	local := newLocalLimiter(limit, window, time.Now)

	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		key := rateKey(c)
		allowed := false
		if store != nil {
			ok, err := store.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err == nil {
				allowed = ok
			} else {
				logger.Warn("Redis 限流失败，降级为进程内限流", zap.Error(err))
				allowed = local.allow(key)
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "too many requests, please retry later")
			c.Abort()
			return
		}

		c.Next()
	}
}

// rateKey 已认证请求按人员计数（同一出口 IP 后的多人互不影响），未认证时退回客户端 IP
func rateKey(c *gin.Context) string {
	if id := c.GetString(ContextPersonID); id != "" {
		return "person:" + id + ":" + c.FullPath()
	}
	return "ip:" + c.ClientIP() + ":" + c.FullPath()
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// localLimiter 按 key 维护的令牌桶集合
// 空闲满一个窗口的桶已回满，删除后重建等价，每个窗口清扫一次
type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter(limit int, window time.Duration, now func() time.Time) *localLimiter {
	l := &localLimiter{
		entries:   make(map[string]*limiterEntry),
		burst:     limit,
		idle:      window,
		lastSweep: now(),
		now:       now,
	}
	if limit > 0 && window > 0 {
		l.every = rate.Every(window / time.Duration(limit))
	}
	return l
}

func (l *localLimiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idle > 0 && now.Sub(l.lastSweep) >= l.idle {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) >= l.idle {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
