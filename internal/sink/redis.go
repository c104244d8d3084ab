package sink

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisValuesSet = "collectd/values"

// Redis stores samples in the layout of collectd's write_redis plugin:
//
//	ZADD collectd/<host>/<identifier> <time> "<time>:<value>"
//	SADD collectd/values <host>/<identifier>
type Redis struct {
	client *redis.Client
	host   string
}

func NewRedis(client *redis.Client, host string) *Redis {
	return &Redis{client: client, host: resolveHost(host)}
}

func (r *Redis) Dispatch(ctx context.Context, s Sample) error {
	ident := r.host + "/" + s.Identifier()
	ts := float64(s.Time.UnixMilli()) / 1000
	member := strconv.FormatFloat(ts, 'f', 3, 64) + ":" + formatValue(s.Value)

	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, "collectd/"+ident, redis.Z{Score: ts, Member: member})
		p.SAdd(ctx, redisValuesSet, ident)
		return nil
	})
	return err
}
