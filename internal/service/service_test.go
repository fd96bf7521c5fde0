package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"portal/internal/database"
	"portal/internal/models"
	"portal/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, email string, role models.Role, status models.ApprovalStatus) *models.Profile {
	t.Helper()
	account := &models.Account{Email: email, PasswordHash: "x"}
	profile := &models.Profile{Email: email, Role: role, ApprovalStatus: status}
	require.NoError(t, repository.NewAccountRepository(db).CreateWithProfile(context.Background(), account, profile))
	return profile
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ProfileEvent
	err    error
}

func (p *recordingPublisher) PublishProfileEvent(_ context.Context, event models.ProfileEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Events() []models.ProfileEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ProfileEvent(nil), p.events...)
}
