package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist хранит идентификаторы отозванных токенов до истечения их срока.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const redisKeyPrefix = "ordersync:token:revoked:"

// RedisBlacklist хранит отозванные токены в Redis с TTL, равным остатку срока токена.
type RedisBlacklist struct {
	client redis.UniversalClient
}

var _ Blacklist = (*RedisBlacklist)(nil)

// NewRedisBlacklist подключается к Redis и проверяет соединение.
func NewRedisBlacklist(ctx context.Context, addr string) (*RedisBlacklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisBlacklist{client: client}, nil
}

// Revoke помечает токен отозванным.
func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, redisKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsRevoked сообщает, отозван ли токен.
func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := b.client.Get(ctx, redisKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}

// Close закрывает соединение с Redis.
func (b *RedisBlacklist) Close() error {
	return b.client.Close()
}

// MemoryBlacklist хранит отозванные токены в памяти процесса.
// Подходит для запуска в одном экземпляре без Redis.
type MemoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

var _ Blacklist = (*MemoryBlacklist)(nil)

// NewMemoryBlacklist создаёт пустой список отозванных токенов.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke помечает токен отозванным и удаляет просроченные записи.
func (b *MemoryBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for k, exp := range b.revoked {
		if !now.Before(exp) {
			delete(b.revoked, k)
		}
	}
	b.revoked[jti] = now.Add(ttl)
	return nil
}

// IsRevoked сообщает, отозван ли токен.
func (b *MemoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	exp, ok := b.revoked[jti]
	if !ok {
		return false, nil
	}
	if !b.now().Before(exp) {
		delete(b.revoked, jti)
		return false, nil
	}
	return true, nil
}
