// Package cache хранит в redis снимки состояния тарифа пользователя.
// Кэш только ускоряет чтение: эффективный статус всё равно вычисляется
// при каждом обращении. Любая запись в ledger увеличивает версию тарифа
// пользователя и сбрасывает снимок; снимок, прочитанный из базы до записи,
// по устаревшей версии в кэш уже не попадёт.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// Cache обёртка над клиентом redis с JSON-сериализацией.
type Cache struct {
	Db  *redis.Client
	ttl time.Duration
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection, ttl time.Duration) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, ttl: ttl}, nil
}

// Close закрывает соединение с redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Get читает значение по ключу; false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func planKey(userUID string) string {
	return "plan:" + userUID
}

func versionKey(userUID string) string {
	return "plan_version:" + userUID
}

// setIfVersion пишет снимок, только если версия не менялась с момента чтения.
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if (current or "0") ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[2], ARGV[2])
end
return 1
`)

// GetUser возвращает закэшированного пользователя с его тарифом.
func (c *Cache) GetUser(ctx context.Context, userUID string) (*models.User, bool, error) {
	var u models.User
	found, err := c.Get(ctx, planKey(userUID), &u)
	if err != nil || !found {
		return nil, false, err
	}
	return &u, true, nil
}

// PlanVersion текущая версия тарифа пользователя; 0, если записей ещё не было.
// Читается до обращения к базе и передаётся в SetUserIfVersion.
func (c *Cache) PlanVersion(ctx context.Context, userUID string) (int64, error) {
	const op = "cache.PlanVersion"
	v, err := c.Db.Get(ctx, versionKey(userUID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// SetUserIfVersion кладёт пользователя в кэш на время ttl, если с момента
// чтения version тариф никто не менял. false означает, что снимок устарел.
func (c *Cache) SetUserIfVersion(ctx context.Context, u *models.User, version int64) (bool, error) {
	const op = "cache.SetUserIfVersion"
	data, err := json.Marshal(u)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := setIfVersion.Run(ctx, c.Db,
		[]string{versionKey(u.UUID), planKey(u.UUID)},
		strconv.FormatInt(version, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return stored == 1, nil
}

// InvalidateUser увеличивает версию тарифа и сбрасывает снимок.
func (c *Cache) InvalidateUser(ctx context.Context, userUID string) error {
	const op = "cache.InvalidateUser"
	_, err := c.Db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(userUID))
		pipe.Del(ctx, planKey(userUID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
