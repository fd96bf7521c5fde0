package service

import (
	"context"

	"portal/internal/models"
	"portal/internal/repository"
	"portal/internal/validation"
)

// ProfileService serves a caller's own profile.
type ProfileService struct {
	profiles  repository.ProfileRepository
	publisher EventPublisher
}

// NewProfileService returns a new ProfileService.
func NewProfileService(profiles repository.ProfileRepository, publisher EventPublisher) *ProfileService {
	return &ProfileService{profiles: profiles, publisher: publisher}
}

// Me returns the profile owned by id.
func (s *ProfileService) Me(ctx context.Context, id string) (*models.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// UpdateDetails changes the owner's name and year of study. Role and approval
// fields are never touched here.
func (s *ProfileService) UpdateDetails(ctx context.Context, id string, req validation.UpdateProfileRequest) (*models.Profile, error) {
	req.Normalize()
	if err := validation.Struct(&req); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if req.FullName == nil && req.YearOfStudy == nil {
		return s.profiles.GetByID(ctx, id)
	}

	before, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	after, err := s.profiles.UpdateDetails(ctx, id, req.FullName, req.YearOfStudy)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, models.NewProfileEvent(models.ProfileEventUpdate, before, after))
	return after, nil
}
