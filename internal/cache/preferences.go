package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// PreferencesStore источник настроек пользователей.
type PreferencesStore interface {
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
}

// Preferences читает настройки через кэш, промахи берёт из next.
// Ошибки Redis не мешают чтению: запрос уходит в хранилище.
type Preferences struct {
	next  PreferencesStore
	cache *Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewPreferences создаёт кэширующую обёртку над хранилищем настроек.
func NewPreferences(next PreferencesStore, cache *Cache, ttl time.Duration, log *slog.Logger) *Preferences {
	return &Preferences{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func preferencesKey(userID string) string {
	return "preferences:" + userID
}

// GetPreferences возвращает настройки пользователя.
func (p *Preferences) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	key := preferencesKey(userID)

	var cached models.UserPreferences
	found, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.log.Warn("preferences cache read failed", slog.String("user_id", userID), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	prefs, err := p.next.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, prefs, p.ttl); err != nil {
		p.log.Warn("preferences cache write failed", slog.String("user_id", userID), sl.Err(err))
	}
	return prefs, nil
}

// Forget удаляет настройки пользователя из кэша.
func (p *Preferences) Forget(ctx context.Context, userID string) error {
	return p.cache.Invalidate(ctx, preferencesKey(userID))
}
