// Package testutil provides shared test fixtures for packages that exercise
// the API end to end.
package testutil

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"

	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/server"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of every seeded account.
const Password = "correct-horse-battery"

// OpenDB opens a migrated in-memory sqlite database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedProfile creates an account with Password and a profile in the given state.
func SeedProfile(t testing.TB, db *gorm.DB, email string, role models.Role, status models.ApprovalStatus) *models.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	account := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	profile := &models.Profile{Email: email, Role: role, ApprovalStatus: status}
	require.NoError(t, repository.NewAccountRepository(db).CreateWithProfile(context.Background(), account, profile))
	return profile
}

// Allow puts emails on the signup allow-list.
func Allow(t testing.TB, db *gorm.DB, emails ...string) {
	t.Helper()
	entries := make([]models.AllowedEmail, 0, len(emails))
	for _, email := range emails {
		entries = append(entries, models.AllowedEmail{Email: email})
	}
	_, err := repository.NewAllowlistRepository(db).Upsert(context.Background(), entries...)
	require.NoError(t, err)
}

// API is a running server bound to a loopback port.
type API struct {
	URL    string
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Server *server.Server
}

// StartAPI serves the full application over sqlite and miniredis until the
// test ends.
func StartAPI(t testing.TB) *API {
	t.Helper()
	db := OpenDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		JWTTTLHours:  1,
		FeatureFlags: "chat_assistant=on",
	}
	srv, err := server.NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.StartRealtime(ctx))

	app := srv.NewApp()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		cancel()
		_ = app.Shutdown()
		_ = rdb.Close()
	})

	return &API{
		URL:    "http://" + ln.Addr().String(),
		DB:     db,
		Redis:  mr,
		Server: srv,
	}
}
