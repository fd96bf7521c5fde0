package server

import (
	"strings"

	"portal/internal/middleware"
	"portal/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID  = "userID"
	localClaims  = "claims"
	localProfile = "profile"
)

// AuthRequired authenticates GET /api/ws with a single-use ticket and every
// other route with a bearer token, then stores the caller's id in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := c.Method() == fiber.MethodGet && strings.HasPrefix(c.Path(), "/api/ws")

		// Browsers cannot set headers on the upgrade request, so the
		// websocket endpoint accepts tickets and nothing else. Tickets are
		// never honoured on other routes.
		if isWSPath {
			ticket := c.Query("ticket")
			if ticket == "" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("WebSocket ticket required"))
			}
			profileID, ok := s.authService.RedeemTicket(c.UserContext(), ticket)
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			s.setIdentity(c, profileID, nil)
			return c.Next()
		}

		tokenString := middleware.BearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		if s.authService.IsRevoked(c.UserContext(), claims.ID) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		s.setIdentity(c, claims.Subject, claims)
		return c.Next()
	}
}

func (s *Server) setIdentity(c *fiber.Ctx, profileID string, claims *middleware.Claims) {
	c.Locals(localUserID, profileID)
	if claims != nil {
		c.Locals(localClaims, claims)
	}
	c.SetUserContext(middleware.WithUserID(c.UserContext(), profileID))
}

// ConsoleRequired admits approved admins only. Must run after AuthRequired.
func (s *Server) ConsoleRequired() fiber.Handler {
	return s.profileGuard(func(p *models.Profile) bool { return p.CanUseConsole() }, "Admin access required")
}

// AppRequired admits approved profiles and admins. Must run after AuthRequired.
func (s *Server) AppRequired() fiber.Handler {
	return s.profileGuard(func(p *models.Profile) bool { return p.CanUseApp() }, "Your account is awaiting approval")
}

func (s *Server) profileGuard(allowed func(*models.Profile) bool, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := s.currentProfile(c)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(message))
			}
			return models.RespondFromError(c, err)
		}
		if !allowed(profile) {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(message))
		}
		return c.Next()
	}
}

// currentUserID returns the authenticated profile id.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// currentProfile loads the caller's profile once per request.
func (s *Server) currentProfile(c *fiber.Ctx) (*models.Profile, error) {
	if p, ok := c.Locals(localProfile).(*models.Profile); ok {
		return p, nil
	}
	id := currentUserID(c)
	if id == "" {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	p, err := s.profileRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	c.Locals(localProfile, p)
	return p, nil
}
