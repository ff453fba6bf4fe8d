package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/locksmith-search/internal/models"
)

// RedisLive implements LiveStore using Redis GEO commands so the API
// process and the ingest consumer can share live positions.
type RedisLive struct {
	client *redis.Client
	key    string
}

func NewRedisLive(addr, password, key string) *RedisLive {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisLive{client: c, key: key}
}

// NewRedisLiveWithClient wires an existing client, used by the consumer
// which owns the connection lifecycle.
func NewRedisLiveWithClient(c *redis.Client, key string) *RedisLive {
	return &RedisLive{client: c, key: key}
}

func (r *RedisLive) Upsert(ctx context.Context, u models.LocationUpdate) error {
	if _, err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Longitude: u.Loc.Lon,
		Latitude:  u.Loc.Lat,
		Name:      u.ProviderID,
	}).Result(); err != nil {
		return err
	}
	return r.client.HSet(ctx, metaKey(u.ProviderID), map[string]interface{}{
		"reported": u.ReportedAt.Format(time.RFC3339),
	}).Err()
}

func (r *RedisLive) Positions(ctx context.Context, ids []string) (map[string]models.GeoPoint, error) {
	if len(ids) == 0 {
		return map[string]models.GeoPoint{}, nil
	}
	res, err := r.client.GeoPos(ctx, r.key, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.GeoPoint, len(ids))
	for i, pos := range res {
		if pos == nil {
			continue
		}
		out[ids[i]] = models.GeoPoint{Lat: pos.Latitude, Lon: pos.Longitude}
	}
	return out, nil
}

func (r *RedisLive) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisLive) Close() error { return r.client.Close() }

func metaKey(id string) string { return "provider:meta:" + id }
