package server

import (
	"portal/internal/middleware"
	"portal/internal/models"
	"portal/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary Student signup
// @Description Create an account with a pending student profile. The email must be on the allow-list.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.SignupRequest true "Signup request"
// @Success 201 {object} object{user=object{id=string,email=string},profile=models.Profile}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req validation.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return models.RespondFromError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": fiber.Map{
			"id":    res.Account.ID,
			"email": res.Account.Email,
		},
		"profile": res.Profile,
	})
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate and return a JWT plus the page the client should open next
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.LoginRequest true "Login credentials"
// @Success 200 {object} object{token=string,expires_at=string,profile=models.Profile,redirect=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req validation.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return models.RespondFromError(c, err)
	}

	return c.JSON(fiber.Map{
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
		"profile":    res.Profile,
		"redirect":   res.Redirect,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current token until it expires
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals(localClaims).(*middleware.Claims)
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}
