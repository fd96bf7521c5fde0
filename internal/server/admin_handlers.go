package server

import (
	"bytes"
	"encoding/json"
	"net/url"

	"portal/internal/models"
	"portal/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ListProfiles handles GET /api/admin/profiles?status=&role=&limit=&offset=
// @Summary List profiles
// @Tags admin
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param role query string false "student or admin"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {array} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/profiles [get]
func (s *Server) ListProfiles(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	filter := models.ProfileFilter{
		Status: models.ApprovalStatus(c.Query("status")),
		Role:   models.Role(c.Query("role")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	profiles, err := s.adminService.ListProfiles(c.UserContext(), filter)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(profiles)
}

// ListPendingProfiles handles GET /api/admin/profiles/pending
// @Summary Review queue
// @Description Pending profiles, oldest first
// @Tags admin
// @Produce json
// @Param limit query int false "Page size" default(100)
// @Success 200 {array} models.Profile
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/profiles/pending [get]
func (s *Server) ListPendingProfiles(c *fiber.Ctx) error {
	page := parsePagination(c, 100)
	profiles, err := s.adminService.ListPending(c.UserContext(), page.Limit)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(profiles)
}

// GetUsage handles GET /api/admin/usage
// @Summary Usage counters
// @Tags admin
// @Produce json
// @Success 200 {object} service.UsageReport
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/usage [get]
func (s *Server) GetUsage(c *fiber.Ctx) error {
	report, err := s.adminService.Usage(c.UserContext())
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(report)
}

// ListAllowedEmails handles GET /api/admin/allowlist
// @Summary List the signup allow-list
// @Tags admin
// @Produce json
// @Success 200 {array} models.AllowedEmail
// @Security BearerAuth
// @Router /admin/allowlist [get]
func (s *Server) ListAllowedEmails(c *fiber.Ctx) error {
	entries, err := s.adminService.AllowedEmails(c.UserContext())
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(entries)
}

// AddAllowedEmails handles POST /api/admin/allowlist. The body is either a
// single entry or an array of entries.
// @Summary Add allow-list entries
// @Tags admin
// @Accept json
// @Produce json
// @Param request body []validation.AllowedEmailRequest true "One entry or an array of entries"
// @Success 201 {object} object{changed=int}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/allowlist [post]
func (s *Server) AddAllowedEmails(c *fiber.Ctx) error {
	var reqs []validation.AllowedEmailRequest
	body := bytes.TrimSpace(c.Body())
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &reqs); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		}
	} else {
		var req validation.AllowedEmailRequest
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		reqs = append(reqs, req)
	}

	changed, err := s.adminService.AllowEmails(c.UserContext(), reqs...)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"changed": changed})
}

// RemoveAllowedEmail handles DELETE /api/admin/allowlist/:email
// @Summary Remove an allow-list entry
// @Tags admin
// @Param email path string true "Email address"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/allowlist/{email} [delete]
func (s *Server) RemoveAllowedEmail(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil || email == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid email"))
	}
	if err := s.adminService.DisallowEmail(c.UserContext(), email); err != nil {
		return models.RespondFromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
