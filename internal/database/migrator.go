package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"portal/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMigration records one applied migration.
type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	Checksum  string `gorm:"size:64;not null"`
	AppliedAt time.Time
}

// TableName returns the migration bookkeeping table.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// MigrationState pairs a known migration with its applied record, if any.
type MigrationState struct {
	Migration
	Applied   bool
	AppliedAt time.Time
}

// Migrator applies and reverts versioned SQL migrations. Each migration and its
// bookkeeping row are written in one transaction.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
	now        func() time.Time
}

// NewMigrator returns a Migrator over the given migrations.
func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]SchemaMigration, error) {
	var rows []SchemaMigration
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	out := make(map[int]SchemaMigration, len(rows))
	for _, r := range rows {
		out[r.Version] = r
	}
	return out, nil
}

// verify fails when the database knows versions the binary does not, or when
// an applied script was edited after the fact.
func (m *Migrator) verify(applied map[int]SchemaMigration) error {
	known := make(map[int]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Version] = mig
	}

	var unknown []int
	for version, row := range applied {
		mig, ok := known[version]
		if !ok {
			unknown = append(unknown, version)
			continue
		}
		if row.Checksum != "" && row.Checksum != mig.Checksum {
			return fmt.Errorf("migration %s was modified after it was applied", mig)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, 0, len(unknown))
	for _, version := range unknown {
		parts = append(parts, fmt.Sprintf("%06d", version))
	}
	return fmt.Errorf("schema_migrations contains versions unknown to this build: %s", strings.Join(parts, ", "))
}

// Up applies every pending migration in version order and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.verify(applied); err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range m.migrations {
		if _, done := applied[mig.Version]; done {
			continue
		}
		middleware.Logger.InfoContext(ctx, "applying migration", slog.String("migration", mig.String()))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				Version:   mig.Version,
				Name:      mig.Name,
				Checksum:  mig.Checksum,
				AppliedAt: m.now(),
			}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("apply migration %s: %w", mig, err)
		}
		ran++
	}
	return ran, nil
}

// Down reverts one applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			mig = &m.migrations[i]
			break
		}
	}
	if mig == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	if _, ok := applied[version]; !ok {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.InfoContext(ctx, "rolling back migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", mig, err)
		}
		return tx.Where("version = ?", version).Delete(&SchemaMigration{}).Error
	})
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationState, 0, len(m.migrations))
	for _, mig := range m.migrations {
		row, ok := applied[mig.Version]
		out = append(out, MigrationState{Migration: mig, Applied: ok, AppliedAt: row.AppliedAt})
	}
	return out, nil
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	all, err := Migrations()
	if err != nil {
		return err
	}
	n, err := NewMigrator(db, all).Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "sql migrations up to date", slog.Int("applied", n))
	return nil
}

// RollbackMigration reverts one embedded migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	all, err := Migrations()
	if err != nil {
		return err
	}
	return NewMigrator(db, all).Down(ctx, version)
}
