package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"systemdstat/pkg/logx"
)

// newRedisClient builds a lazily connecting client and probes it once.
// An unreachable server is not fatal: go-redis reconnects on the next
// command and failed writes are logged per sample.
func newRedisClient(addr string, timeout time.Duration, log logx.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, will retry on write", logx.String("addr", addr), logx.Err(err))
	} else {
		log.Info("connected to redis", logx.String("addr", addr))
	}
	return client
}
