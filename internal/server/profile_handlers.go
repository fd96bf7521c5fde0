package server

import (
	"portal/internal/models"
	"portal/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profile
// @Summary Get own profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Me(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PATCH /api/profile
// @Summary Update own profile details
// @Description Only full_name and year_of_study can change
// @Tags profile
// @Accept json
// @Produce json
// @Param request body validation.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile [patch]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req validation.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	profile, err := s.profileService.UpdateDetails(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(profile)
}

// ResubmitProfile handles POST /api/profile/resubmit
// @Summary Resubmit a rejected profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/resubmit [post]
func (s *Server) ResubmitProfile(c *fiber.Ctx) error {
	profile, err := s.approvalService.Resubmit(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(profile)
}
