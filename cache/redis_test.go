package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tutorEntry struct {
	Name     string
	Subjects []string
}

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	c, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()

	expected := []tutorEntry{{Name: "Ada", Subjects: []string{"Mathematics"}}}
	require.NoError(t, c.Set(ctx, "tutors:complete", expected, time.Minute))

	var actual []tutorEntry
	found, err := c.Get(ctx, "tutors:complete", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGetMiss(t *testing.T) {
	c, _ := setupTestCache(t)

	var out []tutorEntry
	found, err := c.Get(context.Background(), "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiry(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	var out string
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidatePrefix(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tutors:all", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "tutors:subject:Art", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "other", 3, time.Minute))

	require.NoError(t, c.InvalidatePrefix(ctx, "tutors:"))
	assert.False(t, mr.Exists("tutors:all"))
	assert.False(t, mr.Exists("tutors:subject:Art"))
	assert.True(t, mr.Exists("other"))

	assert.NoError(t, c.InvalidatePrefix(ctx, "nothing:"))
}

func TestGetInvalidJSON(t *testing.T) {
	c, mr := setupTestCache(t)
	require.NoError(t, mr.Set("bad", "not-json"))

	var out tutorEntry
	found, err := c.Get(context.Background(), "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestNewRedisErrors(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url")
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = NewRedis(ctx, "redis://127.0.0.1:1/0")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	var out string
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
