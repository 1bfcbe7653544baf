package users_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/scythe504/mission-backend/internal"
	"github.com/scythe504/mission-backend/internal/users"
)

// testDirectory runs the behaviour every backend must share.
func testDirectory(t *testing.T, dir users.Directory) {
	t.Helper()
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, dir.SetName(ctx, "u1", "Alice"))
		name, err := dir.Name(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", name)

		require.NoError(t, dir.SetName(ctx, "u1", "Alicia"))
		name, err = dir.Name(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Alicia", name)
	})

	t.Run("rejects illegal names", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
			ok    bool
		}{
			{"empty", "", false},
			{"at limit", strings.Repeat("x", 40), true},
			{"over limit", strings.Repeat("x", 41), false},
			{"multibyte at limit", strings.Repeat("é", 40), true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := dir.SetName(ctx, "u2", tt.input)
				if tt.ok {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, internal.ErrIllegalName)
				}
			})
		}
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, dir.SetName(ctx, "u3", "Carol"))
		require.NoError(t, dir.Remove(ctx, "u3"))
		_, err := dir.Name(ctx, "u3")
		assert.ErrorIs(t, err, users.ErrUnknownUser)
		assert.NoError(t, dir.Remove(ctx, "u3"), "removing twice is fine")
	})

	t.Run("names fall back to id", func(t *testing.T) {
		names := users.NewNames(dir, time.Second)
		require.NoError(t, dir.SetName(ctx, "u4", "Dave"))
		assert.Equal(t, "Dave", names.DisplayName("u4"))
		assert.Equal(t, "ghost", names.DisplayName("ghost"))
		assert.Equal(t, []string{"Dave", "ghost"}, names.Resolve([]string{"u4", "ghost"}))
	})
}

func TestMemoryDirectory(t *testing.T) {
	testDirectory(t, users.NewMemoryDirectory())
}

func TestRedisDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:        endpoint,
		DialTimeout: 5 * time.Second,
	})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	testDirectory(t, users.NewRedisDirectory(client, "test:users"))

	n, err := client.HLen(ctx, "test:users").Result()
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestDefaultNamer(t *testing.T) {
	var namer users.DefaultNamer
	assert.Equal(t, "User#1", namer.Next())
	assert.Equal(t, "User#2", namer.Next())

	var wg sync.WaitGroup
	seen := sync.Map{}
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(namer.Next(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
	assert.Equal(t, "User#53", namer.Next())
}
