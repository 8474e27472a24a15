package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/tuition-billing/internal/config"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := setupTestCache(t)

	enrollment := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expected := models.StudentProfile{
		UID:            "uid-1",
		FullName:       "Alice Student",
		Email:          "alice@example.com",
		EnrollmentDate: enrollment,
		Scheme:         models.SchemeEvery28,
		FeeAmount:      760,
	}
	err := cache.Set("student:uid-1", expected, time.Minute)
	require.NoError(t, err)

	var actual models.StudentProfile
	found, err := cache.Get("student:uid-1", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestGet_MissingKey(t *testing.T) {
	cache := setupTestCache(t)

	var out models.StudentProfile
	found, err := cache.Get("student:missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache := setupTestCache(t)

	require.NoError(t, cache.Set("student:uid-2", models.StudentProfile{UID: "uid-2"}, time.Minute))
	require.NoError(t, cache.Invalidate("student:uid-2"))

	var out models.StudentProfile
	found, err := cache.Get("student:uid-2", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
