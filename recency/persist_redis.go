package recency

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPersister guarda o array JSON numa chave string do Redis.
type RedisPersister struct {
	rdb redis.Cmdable
	key string
}

func NewRedisPersister(rdb redis.Cmdable, key string) *RedisPersister {
	if key == "" {
		key = "soundboard:" + KVKey
	}
	return &RedisPersister{rdb: rdb, key: key}
}

func (p *RedisPersister) Load(ctx context.Context) ([]Item, error) {
	data, err := p.rdb.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", p.key, err)
	}
	return decodeItems(data)
}

func (p *RedisPersister) Save(ctx context.Context, items []Item) error {
	data, err := encodeItems(items)
	if err != nil {
		return err
	}
	if err := p.rdb.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.key, err)
	}
	return nil
}
