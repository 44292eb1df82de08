// cache - кэш общего числа элементов списков (Total) поверх Redis.
// Повторные запросы страниц с тем же фильтром не пересчитывают COUNT в БД.
package cache

//go:generate mockgen -source=cache.go -destination=../../mocks/cache.go -package=mocks

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/go-movie-catalog/internal/models"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix - префикс ключей, если не задан в конфиге.
const DefaultPrefix = "catalog:total:"

// TotalCache - минимальный контракт кэша Total.
type TotalCache interface {
	// Get возвращает закэшированный Total и признак его наличия.
	Get(ctx context.Context, key string) (int, bool, error)
	// Set сохраняет Total с TTL.
	Set(ctx context.Context, key string, total int, ttl time.Duration) error
	// Close закрывает клиент Redis.
	Close() error
}

// Key строит стабильный ключ кэша для списка и фильтра.
// Пустые поля фильтра кодируются как "-", категория приводится к нижнему регистру.
func Key(list models.List, f models.Filter) string {
	part := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}

	parts := []string{
		string(list),
		part(string(f.Period)),
		part(string(f.SortBy)),
		part(strings.ToLower(strings.TrimSpace(f.Category))),
		strconv.FormatBool(f.VIPOnly),
	}
	// Подборка дописывается только для списка подборки.
	if id := strings.ToLower(strings.TrimSpace(f.CollectionID)); id != "" {
		parts = append(parts, id)
	}

	return strings.Join(parts, ":")
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой - используется DefaultPrefix.
func NewRedisCache(redisURL, prefix string) (TotalCache, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(k string) string { return c.prefix + k }

func (c *redisCache) Get(ctx context.Context, key string) (int, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, total int, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), total, ttl).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
