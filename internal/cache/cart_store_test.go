package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/models"
)

func newTestStore(t *testing.T, ttl time.Duration) (*CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewCartStore(client, ttl), mr
}

func TestCartStore_LoadMissingReturnsEmptyCart(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	cart, err := store.Load(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, cart.Empty())
	assert.NotNil(t, cart.Items)
}

func TestCartStore_SaveLoadClear(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	item := models.CartItem{
		ProductID:   1,
		ProductName: "Basmati Rice",
		QualityID:   3,
		Quality:     models.QualityPremium,
		Quantity:    decimal.NewFromFloat(2.5),
		UnitPrice:   decimal.NewFromInt(80),
	}
	item.Reprice()
	require.NoError(t, store.Save(ctx, "7", &models.Cart{Items: []models.CartItem{item}}))

	assert.True(t, mr.Exists("cart:7"))
	assert.Equal(t, time.Hour, mr.TTL("cart:7"))

	cart, err := store.Load(ctx, "7")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Basmati Rice", cart.Items[0].ProductName)
	assert.True(t, cart.Items[0].Subtotal.Equal(decimal.NewFromInt(200)))

	require.NoError(t, store.Clear(ctx, "7"))
	assert.False(t, mr.Exists("cart:7"))
}

func TestCartStore_ExpiresAfterTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "9", &models.Cart{Items: []models.CartItem{{ProductID: 1}}}))
	mr.FastForward(2 * time.Minute)

	cart, err := store.Load(ctx, "9")
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestCartStore_SessionsAreIsolated(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "1", &models.Cart{Items: []models.CartItem{{ProductID: 10}}}))

	other, err := store.Load(ctx, "2")
	require.NoError(t, err)
	assert.True(t, other.Empty())
}
