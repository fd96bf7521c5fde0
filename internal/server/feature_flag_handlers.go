package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns every configured flag evaluated for the current user.
// @Summary Feature flags for the caller
// @Tags admin
// @Produce json
// @Success 200 {object} object{names=[]string,evaluated=map[string]bool}
// @Security BearerAuth
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{"names": []string{}, "evaluated": map[string]bool{}})
	}
	return c.JSON(fiber.Map{
		"names":     s.featureFlags.Names(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
