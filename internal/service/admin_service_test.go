package service

import (
	"context"
	"testing"

	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixedOnline int

func (f fixedOnline) OnlineCount(context.Context) int { return int(f) }

func newAdminService(db *gorm.DB, pub EventPublisher) *AdminService {
	return NewAdminService(
		repository.NewProfileRepository(db),
		repository.NewAllowlistRepository(db),
		fixedOnline(3),
		pub,
	)
}

func TestAdminService_UsageAndLists(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedProfile(t, db, "admin@uni.edu", models.RoleAdmin, models.StatusApproved)
	seedProfile(t, db, "a@uni.edu", models.RoleStudent, models.StatusPending)
	seedProfile(t, db, "b@uni.edu", models.RoleStudent, models.StatusPending)
	seedProfile(t, db, "c@uni.edu", models.RoleStudent, models.StatusRejected)
	svc := newAdminService(db, nil)

	usage, err := svc.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), usage.Total)
	assert.Equal(t, int64(2), usage.Pending)
	assert.Equal(t, int64(1), usage.Approved)
	assert.Equal(t, int64(1), usage.Rejected)
	assert.Equal(t, 3, usage.Online)

	pending, err := svc.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a@uni.edu", pending[0].Email)

	students, err := svc.ListProfiles(ctx, models.ProfileFilter{Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Len(t, students, 3)

	_, err = svc.ListProfiles(ctx, models.ProfileFilter{Status: "archived"})
	assertAppCode(t, err, models.CodeValidation)
	_, err = svc.ListProfiles(ctx, models.ProfileFilter{Role: "owner"})
	assertAppCode(t, err, models.CodeValidation)
}

func TestAdminService_AllowList(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newAdminService(db, nil)

	n, err := svc.AllowEmails(ctx,
		validation.AllowedEmailRequest{Email: " One@Uni.edu ", Note: "cohort 2026"},
		validation.AllowedEmailRequest{Email: "two@uni.edu"},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := svc.AllowedEmails(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one@uni.edu", list[0].Email)

	_, err = svc.AllowEmails(ctx, validation.AllowedEmailRequest{Email: "not-an-email"})
	assertAppCode(t, err, models.CodeValidation)

	require.NoError(t, svc.DisallowEmail(ctx, "TWO@uni.edu"))
	assertAppCode(t, svc.DisallowEmail(ctx, "two@uni.edu"), models.CodeNotFound)
}

func TestAdminService_SetRole(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedProfile(t, db, "lead@uni.edu", models.RoleStudent, models.StatusPending)
	pub := &recordingPublisher{}
	svc := newAdminService(db, pub)

	promoted, err := svc.SetRole(ctx, "ops", "Lead@uni.edu", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	assert.Equal(t, models.StatusApproved, promoted.ApprovalStatus)
	assert.NotNil(t, promoted.ApprovedAt)
	assert.True(t, promoted.CanUseConsole())

	admins, err := svc.Admins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	demoted, err := svc.SetRole(ctx, "ops", "lead@uni.edu", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, demoted.Role)
	assert.Len(t, pub.Events(), 2)

	_, err = svc.SetRole(ctx, "ops", "lead@uni.edu", "owner")
	assertAppCode(t, err, models.CodeValidation)
	_, err = svc.SetRole(ctx, "ops", "ghost@uni.edu", models.RoleAdmin)
	assertAppCode(t, err, models.CodeNotFound)
}

func TestProfileService_UpdateDetails(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	p := seedProfile(t, db, "me@uni.edu", models.RoleStudent, models.StatusPending)
	pub := &recordingPublisher{}
	svc := NewProfileService(repository.NewProfileRepository(db), pub)

	name := "  Grace Hopper "
	year := 3
	updated, err := svc.UpdateDetails(ctx, p.ID, validation.UpdateProfileRequest{FullName: &name, YearOfStudy: &year})
	require.NoError(t, err)
	require.NotNil(t, updated.FullName)
	assert.Equal(t, "Grace Hopper", *updated.FullName)
	assert.Equal(t, 3, *updated.YearOfStudy)
	assert.Equal(t, models.StatusPending, updated.ApprovalStatus)
	assert.Len(t, pub.Events(), 1)

	bad := 11
	_, err = svc.UpdateDetails(ctx, p.ID, validation.UpdateProfileRequest{YearOfStudy: &bad})
	assertAppCode(t, err, models.CodeValidation)

	me, err := svc.Me(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", *me.FullName)
}
