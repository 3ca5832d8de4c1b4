// Package lock распределённая блокировка запусков фоновых задач поверх Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrHeld блокировку уже держит другой процесс.
var ErrHeld = errors.New("lock is held by another owner")

const keyPrefix = "lock:"

// Locker выдаёт именованные блокировки с ограниченным временем жизни.
type Locker struct {
	rs     *redsync.Redsync
	client *redis.Client
	ttl    time.Duration
}

// New создаёт Locker на клиенте Redis. ttl ограничивает время жизни блокировки,
// если держатель упал, не освободив её.
func New(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		client: client,
		ttl:    ttl,
	}
}

// TryLock делает одну попытку взять блокировку name. Если она занята, возвращается ErrHeld.
// Возвращаемая функция освобождает блокировку.
func (l *Locker) TryLock(ctx context.Context, name string) (func(context.Context) error, error) {
	const op = "lock.TryLock"
	key := keyPrefix + name
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		held, existsErr := l.client.Exists(ctx, key).Result()
		if existsErr == nil && held > 0 {
			return nil, fmt.Errorf("%s: %s: %w", op, name, ErrHeld)
		}
		return nil, fmt.Errorf("%s: %s: %w", op, name, err)
	}

	release := func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			return fmt.Errorf("lock.Release: %s: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("lock.Release: %s: lock expired before release", name)
		}
		return nil
	}
	return release, nil
}
