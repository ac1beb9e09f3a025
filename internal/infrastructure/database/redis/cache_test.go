package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/molfrag/internal/config"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/pkg/errors"
)

type cachedSets struct {
	Input string   `json:"input"`
	Sets  []string `json:"sets"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Mock-backed suite
// ─────────────────────────────────────────────────────────────────────────────

type CacheMockSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
	ctx   context.Context
}

func (s *CacheMockSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := newClientWith(db, config.RedisConfig{}, logging.NewNopLogger())
	s.cache = NewRedisCache(client, logging.NewNopLogger(), WithPrefix("test:"))
	s.ctx = context.Background()
}

func (s *CacheMockSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CacheMockSuite) TestGet_Hit() {
	s.mock.ExpectGet("test:k").SetVal(`{"input":"CCO","sets":["C","CO"]}`)

	var out cachedSets
	s.Require().NoError(s.cache.Get(s.ctx, "k", &out))
	s.Equal("CCO", out.Input)
	s.Equal([]string{"C", "CO"}, out.Sets)
}

func (s *CacheMockSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k").RedisNil()

	var out cachedSets
	err := s.cache.Get(s.ctx, "k", &out)
	s.ErrorIs(err, ErrCacheMiss)
	s.True(errors.IsNotFound(err))
}

func (s *CacheMockSuite) TestGet_Error() {
	s.mock.ExpectGet("test:k").SetErr(fmt.Errorf("connection reset"))

	var out cachedSets
	err := s.cache.Get(s.ctx, "k", &out)
	s.Require().Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeCacheError))
}

func (s *CacheMockSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:k").SetVal("{not json")

	var out cachedSets
	err := s.cache.Get(s.ctx, "k", &out)
	s.True(errors.IsCode(err, errors.ErrCodeSerialization))
}

func (s *CacheMockSuite) TestGetOrSet_ReadErrorSkipsLoader() {
	s.mock.ExpectGet("test:k").SetErr(fmt.Errorf("timeout"))

	called := false
	var out cachedSets
	err := s.cache.GetOrSet(s.ctx, "k", &out, time.Minute, func(context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})
	s.True(errors.IsCode(err, errors.ErrCodeCacheError))
	s.False(called)
}

func (s *CacheMockSuite) TestDeleteByPrefix_ScanError() {
	s.mock.ExpectScan(0, "test:fragments:*", 100).SetErr(fmt.Errorf("connection reset"))

	n, err := s.cache.DeleteByPrefix(s.ctx, "fragments:")
	s.Zero(n)
	s.True(errors.IsCode(err, errors.ErrCodeCacheError))
}

func (s *CacheMockSuite) TestPing() {
	s.mock.ExpectPing().SetVal("PONG")
	s.NoError(s.cache.Ping(s.ctx))
}

func TestCacheMockSuite(t *testing.T) {
	suite.Run(t, new(CacheMockSuite))
}

// ─────────────────────────────────────────────────────────────────────────────
// miniredis-backed flows
// ─────────────────────────────────────────────────────────────────────────────

func newTestCache(t *testing.T, opts ...CacheOption) (Cache, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestClient(t)
	return NewRedisCache(client, logging.NewNopLogger(), append([]CacheOption{WithTTLJitter(0)}, opts...)...), mr
}

func TestCache_SetUsesPrefixAndTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", cachedSets{Input: "CCO"}, 2*time.Minute))
	assert.True(t, mr.Exists("molfrag:k"))
	assert.Equal(t, 2*time.Minute, mr.TTL("molfrag:k"))

	require.NoError(t, cache.Set(ctx, "d", cachedSets{}, 0))
	assert.Equal(t, time.Hour, mr.TTL("molfrag:d"))
}

func TestCache_SetUnserializable(t *testing.T) {
	cache, _ := newTestCache(t)
	err := cache.Set(context.Background(), "k", make(chan int), time.Minute)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestCache_JitterStaysInRange(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewRedisCache(client, nil, WithTTLJitter(0.1))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("j%d", i)
		require.NoError(t, cache.Set(ctx, key, i, 100*time.Second))
		ttl := mr.TTL("molfrag:" + key)
		assert.GreaterOrEqual(t, ttl, 90*time.Second)
		assert.LessOrEqual(t, ttl, 110*time.Second)
	}
}

func TestCache_GetOrSet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return cachedSets{Input: "NCC(O)CC", Sets: []string{"C[NH3+]", "CCC=O"}}, nil
	}

	var first cachedSets
	require.NoError(t, cache.GetOrSet(ctx, "frag", &first, time.Minute, loader))
	assert.Equal(t, "NCC(O)CC", first.Input)
	assert.True(t, mr.Exists("molfrag:frag"))

	var second cachedSets
	require.NoError(t, cache.GetOrSet(ctx, "frag", &second, time.Minute, loader))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCache_GetOrSet_LoaderError(t *testing.T) {
	cache, mr := newTestCache(t)
	boom := errors.New(errors.ErrCodeGraphOperation, "boom")

	var out cachedSets
	err := cache.GetOrSet(context.Background(), "k", &out, time.Minute, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("molfrag:k"))
}

func TestCache_GetOrSet_NilResultIsNotStored(t *testing.T) {
	cache, mr := newTestCache(t)

	var out cachedSets
	err := cache.GetOrSet(context.Background(), "k", &out, time.Minute, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.False(t, mr.Exists("molfrag:k"))
}

func TestCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", 1, time.Second))
	mr.FastForward(2 * time.Second)

	var out int
	assert.ErrorIs(t, cache.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestCache_DeleteByPrefix(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"fragments:a", "fragments:b", "rules:c"} {
		require.NoError(t, cache.Set(ctx, k, k, time.Minute))
	}
	n, err := cache.DeleteByPrefix(ctx, "fragments:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists("molfrag:rules:c"))
	assert.False(t, mr.Exists("molfrag:fragments:a"))
}

func TestNewCacheFromConfig(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCacheFromConfig(client, config.RedisConfig{KeyPrefix: "cfg:", DefaultTTL: 10 * time.Minute}, nil, WithTTLJitter(0))

	require.NoError(t, cache.Set(context.Background(), "k", "v", 0))
	assert.True(t, mr.Exists("cfg:k"))
	assert.Equal(t, 10*time.Minute, mr.TTL("cfg:k"))
}
