package service

import (
	"context"
	"strings"

	"portal/internal/models"
	"portal/internal/observability"
	"portal/internal/repository"
	"portal/internal/validation"
)

// OnlineCounter reports how many profiles currently hold a realtime connection.
type OnlineCounter interface {
	OnlineCount(ctx context.Context) int
}

// UsageReport is the admin console's headline numbers.
type UsageReport struct {
	models.UsageStats
	Online int `json:"online"`
}

// AdminService serves the admin console. Callers must already hold console access.
type AdminService struct {
	profiles  repository.ProfileRepository
	allowlist repository.AllowlistRepository
	online    OnlineCounter
	publisher EventPublisher
	audit     *observability.AuditLogger
}

// NewAdminService returns a new AdminService. online may be nil.
func NewAdminService(
	profiles repository.ProfileRepository,
	allowlist repository.AllowlistRepository,
	online OnlineCounter,
	publisher EventPublisher,
) *AdminService {
	return &AdminService{
		profiles:  profiles,
		allowlist: allowlist,
		online:    online,
		publisher: publisher,
		audit:     observability.NewAuditLogger("admin"),
	}
}

// ListProfiles returns all profiles matching filter, newest first.
func (s *AdminService) ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.NewValidationError("Invalid status filter")
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, models.NewValidationError("Invalid role filter")
	}
	return s.profiles.List(ctx, filter)
}

// ListPending returns the review queue, oldest first.
func (s *AdminService) ListPending(ctx context.Context, limit int) ([]models.Profile, error) {
	return s.profiles.ListPending(ctx, limit)
}

// Usage returns status counts plus the number of connected profiles.
func (s *AdminService) Usage(ctx context.Context) (*UsageReport, error) {
	stats, err := s.profiles.Usage(ctx)
	if err != nil {
		return nil, err
	}
	report := &UsageReport{UsageStats: *stats}
	if s.online != nil {
		report.Online = s.online.OnlineCount(ctx)
	}
	return report, nil
}

// AllowedEmails lists the signup allow-list.
func (s *AdminService) AllowedEmails(ctx context.Context) ([]models.AllowedEmail, error) {
	return s.allowlist.List(ctx)
}

// AllowEmails adds or updates allow-list entries and returns how many rows changed.
func (s *AdminService) AllowEmails(ctx context.Context, reqs ...validation.AllowedEmailRequest) (int64, error) {
	entries := make([]models.AllowedEmail, 0, len(reqs))
	for i := range reqs {
		req := reqs[i]
		req.Email = validation.NormalizeEmail(req.Email)
		req.Note = strings.TrimSpace(req.Note)
		if err := validation.Struct(&req); err != nil {
			return 0, models.NewValidationError(err.Error())
		}
		entries = append(entries, models.AllowedEmail{Email: req.Email, Note: req.Note})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return s.allowlist.Upsert(ctx, entries...)
}

// DisallowEmail removes an allow-list entry. Existing accounts are unaffected.
func (s *AdminService) DisallowEmail(ctx context.Context, email string) error {
	return s.allowlist.Remove(ctx, validation.NormalizeEmail(email))
}

// SetRole is the operator path for granting or revoking the admin role. It is
// not exposed over HTTP and logs an audit line per change.
func (s *AdminService) SetRole(ctx context.Context, operator, email string, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("Invalid role")
	}
	before, after, err := s.profiles.SetRole(ctx, validation.NormalizeEmail(email), role)
	if err != nil {
		return nil, err
	}

	s.audit.LogRoleChange(ctx, operator, after.ID, after.Email,
		string(before.Role), string(after.Role), string(after.ApprovalStatus))
	publish(ctx, s.publisher, models.NewProfileEvent(models.ProfileEventUpdate, before, after))
	return after, nil
}

// Admins lists every profile holding the admin role.
func (s *AdminService) Admins(ctx context.Context) ([]models.Profile, error) {
	return s.profiles.List(ctx, models.ProfileFilter{Role: models.RoleAdmin, Limit: 500})
}
