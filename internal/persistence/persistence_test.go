package persistence

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/config"
)

func TestPendingMigrationsSkipsAppliedAndNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"002_voucher_counter.sql": {Data: []byte("CREATE TABLE voucher_counter ();")},
		"001_customers.sql":       {Data: []byte("CREATE TABLE customers ();")},
		"003_indexes.sql":         {Data: []byte("CREATE INDEX x ON customers (email);")},
		"README.md":               {Data: []byte("notes")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"001_customers.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_voucher_counter.sql", "003_indexes.sql"}, pending)
}

func TestRunMigrationsWithoutPoolIsNoop(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, "does-not-exist", zap.NewNop()))
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.RedisConfig{Addr: "localhost:6380", Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.RedisConfig{Addr: "redis://:secret@cache:6379/3"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
}

func TestUnconfiguredStores(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, "loyalty", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Configured())
	assert.ErrorIs(t, pg.Ping(context.Background()), ErrNotConfigured)
	pg.Close()

	rdb, err := NewRedis(config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, rdb.Configured())
	assert.ErrorIs(t, rdb.Ping(context.Background()), ErrNotConfigured)
	rdb.Close()
}
