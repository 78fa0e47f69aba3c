package services

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/codeschool/accounts/internal/auth"
	"github.com/codeschool/accounts/internal/cache"
	"github.com/codeschool/accounts/internal/config"
	"github.com/codeschool/accounts/internal/database"
	"github.com/codeschool/accounts/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTAccessExpiry:   15 * time.Minute,
		JWTRefreshExpiry:  time.Hour,
		AuthBackends:      []string{auth.BackendEmail, auth.BackendSchoolID},
		BcryptCost:        bcrypt.MinCost,
		MinPasswordLength: 8,
		CacheTTL:          time.Minute,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	db.Logger = logger.Default.LogMode(logger.Silent)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.MigrateShared(db))
	return db
}

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	events   *events.Publisher
	accounts *AccountService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, c *cache.Helper) *testEnv {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()

	pub := events.NewInProcess(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	t.Cleanup(func() { pub.Close() })

	accounts := NewAccountService(db, cfg, pub, c)
	settings, err := auth.NewSettings(cfg.AuthBackends)
	require.NoError(t, err)

	return &testEnv{
		db:       db,
		cfg:      cfg,
		events:   pub,
		accounts: accounts,
		auth:     NewAuthService(db, cfg, accounts, settings),
	}
}

func newRedisHelper(t *testing.T) (*cache.Helper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewHelper(client, "users:"), mr
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Unscoped().Model(model).Count(&n).Error)
	return n
}
