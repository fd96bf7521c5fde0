package repository

import (
	"context"
	"strings"

	"portal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllowlistRepository manages the emails permitted to sign up.
type AllowlistRepository interface {
	IsAllowed(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]models.AllowedEmail, error)
	Upsert(ctx context.Context, entries ...models.AllowedEmail) (int64, error)
	Remove(ctx context.Context, email string) error
}

type allowlistRepository struct {
	db *gorm.DB
}

// NewAllowlistRepository returns a new AllowlistRepository implementation.
func NewAllowlistRepository(db *gorm.DB) AllowlistRepository {
	return &allowlistRepository{db: db}
}

// IsAllowed matches case-insensitively so mixed-case rows still match.
func (r *allowlistRepository) IsAllowed(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AllowedEmail{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *allowlistRepository) List(ctx context.Context) ([]models.AllowedEmail, error) {
	var entries []models.AllowedEmail
	if err := r.db.WithContext(ctx).Order("email ASC").Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

// Upsert stores entries with lowercased emails, updating notes of existing rows.
func (r *allowlistRepository) Upsert(ctx context.Context, entries ...models.AllowedEmail) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	rows := make([]models.AllowedEmail, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		e.Email = strings.ToLower(strings.TrimSpace(e.Email))
		if e.Email == "" {
			continue
		}
		if _, dup := seen[e.Email]; dup {
			continue
		}
		seen[e.Email] = struct{}{}
		rows = append(rows, e)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"note"}),
	}).Create(&rows)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *allowlistRepository) Remove(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res := r.db.WithContext(ctx).Where("email = ?", email).Delete(&models.AllowedEmail{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Allowed email", email)
	}
	return nil
}
