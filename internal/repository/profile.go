package repository

import (
	"context"
	"errors"
	"time"

	"portal/internal/cache"
	"portal/internal/models"
	"portal/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// transitionColumns are the only columns an approval transition may write.
var transitionColumns = []string{
	"approval_status",
	"rejection_reason",
	"approved_at",
	"rejected_at",
	"updated_at",
}

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	ListPending(ctx context.Context, limit int) ([]models.Profile, error)
	Usage(ctx context.Context) (*models.UsageStats, error)
	UpdateDetails(ctx context.Context, id string, fullName *string, yearOfStudy *int) (*models.Profile, error)
	// Transition locks the row, runs fn on it and persists the approval
	// columns, all in one transaction. It returns the row before and after.
	Transition(ctx context.Context, id string, fn func(p *models.Profile) error) (before, after *models.Profile, err error)
	// SetRole is the out-of-band role change used by operators.
	SetRole(ctx context.Context, email string, role models.Role) (before, after *models.Profile, err error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile

	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		defer observability.TrackQuery("select", models.ProfilesTable)()
		if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "Profile", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByEmail returns (nil, nil) when no profile matches.
func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	q := r.db.WithContext(ctx).Model(&models.Profile{})
	if filter.Status != "" {
		q = q.Where("approval_status = ?", filter.Status)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	var profiles []models.Profile
	if err := q.Order("created_at DESC").
		Limit(clampLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

// ListPending returns pending profiles, oldest first.
func (r *profileRepository) ListPending(ctx context.Context, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).
		Where("approval_status = ?", models.StatusPending).
		Order("created_at ASC").
		Limit(clampLimit(limit)).
		Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

func (r *profileRepository) Usage(ctx context.Context) (*models.UsageStats, error) {
	var stats models.UsageStats
	err := cache.Aside(ctx, cache.UsageKey, &stats, cache.UsageTTL, func() error {
		return r.db.WithContext(ctx).Model(&models.Profile{}).
			Select(`COUNT(*) AS total,
COALESCE(SUM(CASE WHEN approval_status = ? THEN 1 ELSE 0 END), 0) AS pending,
COALESCE(SUM(CASE WHEN approval_status = ? THEN 1 ELSE 0 END), 0) AS approved,
COALESCE(SUM(CASE WHEN approval_status = ? THEN 1 ELSE 0 END), 0) AS rejected`,
				models.StatusPending, models.StatusApproved, models.StatusRejected).
			Scan(&stats).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &stats, nil
}

func (r *profileRepository) UpdateDetails(ctx context.Context, id string, fullName *string, yearOfStudy *int) (*models.Profile, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if fullName != nil {
		updates["full_name"] = *fullName
	}
	if yearOfStudy != nil {
		updates["year_of_study"] = *yearOfStudy
	}

	var profile models.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&profile, "id = ?", id).Error
	})
	if err != nil {
		return nil, notFoundOr(err, "Profile", id)
	}
	cache.InvalidateProfile(ctx, id)
	return &profile, nil
}

func (r *profileRepository) Transition(ctx context.Context, id string, fn func(p *models.Profile) error) (*models.Profile, *models.Profile, error) {
	var before, after *models.Profile

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Profile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "id = ?", id).Error; err != nil {
			return err
		}
		before = current.Clone()

		if err := fn(&current); err != nil {
			return &rejectedError{err: err}
		}

		if err := tx.Model(&current).Select(transitionColumns).Updates(&current).Error; err != nil {
			return err
		}
		after = &current
		return nil
	})
	if err != nil {
		var rejected *rejectedError
		if errors.As(err, &rejected) {
			return nil, nil, rejected.err
		}
		return nil, nil, notFoundOr(err, "Profile", id)
	}

	cache.InvalidateProfile(ctx, id)
	return before, after, nil
}

func (r *profileRepository) SetRole(ctx context.Context, email string, role models.Role) (*models.Profile, *models.Profile, error) {
	var before, after *models.Profile

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Profile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("LOWER(email) = LOWER(?)", email).
			First(&current).Error; err != nil {
			return err
		}
		before = current.Clone()

		now := time.Now().UTC()
		current.Role = role
		if role == models.RoleAdmin && current.ApprovalStatus != models.StatusApproved {
			current.ApprovalStatus = models.StatusApproved
			current.ApprovedAt = &now
			current.RejectionReason = nil
			current.RejectedAt = nil
		}
		current.UpdatedAt = now

		if err := tx.Model(&current).Select(append([]string{"role"}, transitionColumns...)).Updates(&current).Error; err != nil {
			return err
		}
		after = &current
		return nil
	})
	if err != nil {
		return nil, nil, notFoundOr(err, "Profile", email)
	}

	cache.InvalidateProfile(ctx, after.ID)
	return before, after, nil
}

// rejectedError carries an error returned by a Transition callback through
// the transaction so it reaches the caller unwrapped.
type rejectedError struct{ err error }

func (e *rejectedError) Error() string { return e.err.Error() }
