package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

func TestMemoryTokenCacheExpiresEntries(t *testing.T) {
	now := time.Now()
	c := NewMemoryTokenCache(10 * time.Second)
	c.now = func() time.Time { return now }

	record := models.QRToken{Token: "abc", LessonID: "L1", Classroom: "6-2", CreatedAt: now}
	c.Put(context.Background(), record)

	got, ok := c.Get(context.Background(), "abc")
	require.True(t, ok)
	require.Equal(t, "L1", got.LessonID)

	now = now.Add(10 * time.Second)
	_, ok = c.Get(context.Background(), "abc")
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestDisplayCodesReplaceAndExpire(t *testing.T) {
	now := time.Now()
	d := NewDisplayCodes(5 * time.Second)
	d.now = func() time.Time { return now }

	d.Put("12345", "first")
	d.Put("12345", "second")

	token, ok := d.Lookup("12345")
	require.True(t, ok)
	require.Equal(t, "second", token)

	_, ok = d.Lookup("99999")
	require.False(t, ok)

	now = now.Add(6 * time.Second)
	_, ok = d.Lookup("12345")
	require.False(t, ok)
}

func TestRedisTokenCacheRoundTripAndTTL(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	defer client.Close()

	c := NewRedisTokenCache(client, 17*time.Second, zerolog.Nop())
	ctx := context.Background()

	created := time.Now().UTC().Truncate(time.Millisecond)
	c.Put(ctx, models.QRToken{Token: "tok", LessonID: "CS101-L1", Classroom: "6-2", CreatedAt: created})

	got, ok := c.Get(ctx, "tok")
	require.True(t, ok)
	require.Equal(t, "CS101-L1", got.LessonID)
	require.True(t, got.CreatedAt.Equal(created))
	require.Equal(t, 17*time.Second, mini.TTL(redisTokenKeyPrefix+"tok"))

	mini.FastForward(18 * time.Second)
	_, ok = c.Get(ctx, "tok")
	require.False(t, ok)
}

func TestRedisTokenCacheTreatsOutageAsMiss(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr(), MaxRetries: -1})
	defer client.Close()
	mini.Close()

	c := NewRedisTokenCache(client, time.Second, zerolog.Nop())
	_, ok := c.Get(context.Background(), "tok")
	require.False(t, ok)
}
