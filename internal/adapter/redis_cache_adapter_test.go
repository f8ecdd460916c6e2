package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"tubequiz/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisCacheAdapter_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	adapter := NewRedisCacheAdapter(db)
	ctx := context.Background()

	key := "tubequiz:quiz:detail:01HQ"

	t.Run("Success", func(t *testing.T) {
		mock.ExpectGet(key).SetVal(`{"id":"01HQ"}`)
		val, err := adapter.Get(ctx, key)
		assert.NoError(t, err)
		assert.Equal(t, `{"id":"01HQ"}`, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CacheMiss", func(t *testing.T) {
		mock.ExpectGet(key).SetErr(redis.Nil)
		val, err := adapter.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
		assert.Empty(t, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RedisError", func(t *testing.T) {
		redisErr := errors.New("some redis error")
		mock.ExpectGet(key).SetErr(redisErr)
		val, err := adapter.Get(ctx, key)
		assert.ErrorIs(t, err, redisErr)
		assert.Empty(t, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisCacheAdapter_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	adapter := NewRedisCacheAdapter(db)
	ctx := context.Background()

	mock.ExpectSet("k", "v", time.Hour).SetVal("OK")
	assert.NoError(t, adapter.Set(ctx, "k", "v", time.Hour))

	mock.ExpectSet("k", "v", time.Hour).SetErr(errors.New("OOM"))
	assert.Error(t, adapter.Set(ctx, "k", "v", time.Hour))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheAdapter_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	adapter := NewRedisCacheAdapter(db)
	ctx := context.Background()

	mock.ExpectDel("a", "b").SetVal(1)
	assert.NoError(t, adapter.Delete(ctx, "a", "b"))

	assert.NoError(t, adapter.Delete(ctx), "no keys is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheAdapter_Exists(t *testing.T) {
	db, mock := redismock.NewClientMock()
	adapter := NewRedisCacheAdapter(db)
	ctx := context.Background()

	mock.ExpectExists("jti").SetVal(1)
	ok, err := adapter.Exists(ctx, "jti")
	assert.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExists("jti").SetVal(0)
	ok, err = adapter.Exists(ctx, "jti")
	assert.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExists("jti").SetErr(errors.New("conn refused"))
	_, err = adapter.Exists(ctx, "jti")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheAdapter_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	adapter := NewRedisCacheAdapter(db)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, adapter.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
