package repository

import (
	"context"
	"errors"

	"portal/internal/models"

	"gorm.io/gorm"
)

// AccountRepository persists authentication subjects.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// CreateWithProfile inserts the account and its profile in one transaction.
	CreateWithProfile(ctx context.Context, account *models.Account, profile *models.Profile) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a new AccountRepository implementation.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// GetByEmail returns (nil, nil) when no account matches.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &account, nil
}

func (r *accountRepository) CreateWithProfile(ctx context.Context, account *models.Account, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		profile.ID = account.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A user with this email address has already been registered", nil)
		}
		return models.NewInternalError(err)
	}
	return nil
}
