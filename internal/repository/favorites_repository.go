package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/redis"
	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrEmptyCityName = errors.New("city name is empty")

// Favorites is an ordered set of favorite city names backed by a single KV entry holding a JSON
// array. The entry is read once when the instance is loaded; writes from other instances are not
// observed until the next load.
type Favorites struct {
	mu     sync.Mutex
	client redisClient
	key    string
	cities []string
	logger *zap.SugaredLogger
}

// LoadFavorites reads the favorites entry from the configured Redis key.
func LoadFavorites(ctx context.Context) (*Favorites, error) {
	return LoadFavoritesFrom(ctx, redis.GetClient(), config.GetFavoritesKey())
}

// LoadFavoritesFrom reads the favorites entry stored under key. A missing entry is an empty list.
// A corrupt entry is logged and treated as empty; the next write replaces it.
func LoadFavoritesFrom(ctx context.Context, client redisClient, key string) (*Favorites, error) {
	f := &Favorites{
		client: client,
		key:    key,
		cities: []string{},
		logger: config.GetLogger(),
	}

	raw, err := client.Get(ctx, key).Result()
	if errors.Is(err, redisv9.Nil) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	var cities []string
	if err := json.Unmarshal([]byte(raw), &cities); err != nil {
		f.logger.Warnw("Ignoring corrupt favorites entry", "key", key, "error", err)
		return f, nil
	}
	for _, c := range cities {
		c = strings.TrimSpace(c)
		if c != "" && f.indexOf(c) < 0 {
			f.cities = append(f.cities, c)
		}
	}
	return f, nil
}

// List returns the favorite city names in insertion order.
func (f *Favorites) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.cities))
	copy(out, f.cities)
	return out
}

// Contains reports whether name is a favorite, ignoring case.
func (f *Favorites) Contains(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexOf(strings.TrimSpace(name)) >= 0
}

// Add appends name and persists the list. Adding a name that is already present is a no-op.
func (f *Favorites) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyCityName
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.indexOf(name) >= 0 {
		return nil
	}
	next := append(append(make([]string, 0, len(f.cities)+1), f.cities...), name)
	if err := f.persist(ctx, next); err != nil {
		return err
	}
	f.cities = next
	return nil
}

// Remove deletes name and persists the list. Removing a name that is not present is a no-op.
func (f *Favorites) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(strings.TrimSpace(name))
	if i < 0 {
		return nil
	}
	next := make([]string, 0, len(f.cities)-1)
	next = append(next, f.cities[:i]...)
	next = append(next, f.cities[i+1:]...)
	if err := f.persist(ctx, next); err != nil {
		return err
	}
	f.cities = next
	return nil
}

func (f *Favorites) indexOf(name string) int {
	for i, c := range f.cities {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func (f *Favorites) persist(ctx context.Context, cities []string) error {
	b, err := json.Marshal(cities)
	if err != nil {
		return err
	}
	if err := f.client.Set(ctx, f.key, b, 0).Err(); err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}
