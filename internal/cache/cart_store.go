package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// CartStore keeps one cart per staff session in Redis. Every write refreshes
// the TTL so an idle cart eventually disappears.
type CartStore struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewCartStore creates a new CartStore.
func NewCartStore(redis *RedisClient, ttl time.Duration) *CartStore {
	return &CartStore{redis: redis, ttl: ttl}
}

func (s *CartStore) key(session string) string {
	return fmt.Sprintf("cart:%s", session)
}

// Load returns the session cart, or an empty cart when none is stored.
func (s *CartStore) Load(ctx context.Context, session string) (*models.Cart, error) {
	raw, err := s.redis.Get(ctx, s.key(session))
	if errors.Is(err, ErrMiss) {
		return &models.Cart{Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// Save replaces the session cart.
func (s *CartStore) Save(ctx context.Context, session string, cart *models.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(session), raw, s.ttl); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Clear discards the session cart.
func (s *CartStore) Clear(ctx context.Context, session string) error {
	return s.redis.Delete(ctx, s.key(session))
}
