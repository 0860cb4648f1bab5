package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/config"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// Client Redis 客户端封装
// 用于 Token 黑名单、班组课表读缓存与接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 班组课表缓存 ──
// 每个班组一个 hash，field 为 "<year>:<semester>"，失效时整键删除。
// 版本键在每次失效时 +1；回填只在版本未变时写入，避免把失效前读到的旧数据写回。

const (
	groupSchedulePrefix = "schedule:group:"
	groupVersionPrefix  = "schedule:group:ver:"
)

// ErrStaleVersion 回填期间班组缓存已失效，本次写入被放弃
var ErrStaleVersion = errors.New("cache version changed")

// GetGroupSchedule 读取缓存的班组课表（已序列化），未命中返回 ErrCacheMiss
func (c *Client) GetGroupSchedule(ctx context.Context, groupCode, term string) ([]byte, error) {
	data, err := c.rdb.HGet(ctx, groupSchedulePrefix+groupCode, term).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// GroupScheduleVersion 当前缓存版本，从未失效过时为 0
func (c *Client) GroupScheduleVersion(ctx context.Context, groupCode string) (int64, error) {
	v, err := c.rdb.Get(ctx, groupVersionPrefix+groupCode).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetGroupSchedule 版本仍为 version 时写入班组课表缓存，否则返回 ErrStaleVersion
func (c *Client) SetGroupSchedule(ctx context.Context, groupCode, term string, version int64, data []byte, ttl time.Duration) error {
	key := groupSchedulePrefix + groupCode
	verKey := groupVersionPrefix + groupCode

	err := c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if cur != version {
			return ErrStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, term, data)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
			return nil
		})
		return err
	}, verKey)
	if errors.Is(err, goredis.TxFailedErr) {
		return ErrStaleVersion
	}
	return err
}

// InvalidateGroupSchedule 版本 +1 并删除班组的全部学期缓存
func (c *Client) InvalidateGroupSchedule(ctx context.Context, groupCode string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, groupVersionPrefix+groupCode)
		pipe.Del(ctx, groupSchedulePrefix+groupCode)
		return nil
	})
	return err
}

// ── 限流 ──

const rateLimitPrefix = "ratelimit:"

// CheckRateLimit 滑动窗口限流，返回本次请求是否放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	fullKey := rateLimitPrefix + key
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "0", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
	pipe.ZAdd(ctx, fullKey, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, fullKey)
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
