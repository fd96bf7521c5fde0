package server

import (
	"portal/internal/models"
	"portal/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ApproveUser handles POST /api/rpc/approve_user
// @Summary Approve a pending profile
// @Tags rpc
// @Accept json
// @Produce json
// @Param request body validation.ApproveRequest true "Profile to approve"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rpc/approve_user [post]
func (s *Server) ApproveUser(c *fiber.Ctx) error {
	var req validation.ApproveRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.Struct(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}

	profile, err := s.approvalService.ApproveUser(c.UserContext(), currentUserID(c), req.UID)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(profile)
}

// RejectUser handles POST /api/rpc/reject_user
// @Summary Reject a pending profile
// @Description A blank reason is stored as null
// @Tags rpc
// @Accept json
// @Produce json
// @Param request body validation.RejectRequest true "Profile to reject and optional reason"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /rpc/reject_user [post]
func (s *Server) RejectUser(c *fiber.Ctx) error {
	var req validation.RejectRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := validation.Struct(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	}

	profile, err := s.approvalService.RejectUser(c.UserContext(), currentUserID(c), req.UID, req.Reason)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(profile)
}
