package server

import (
	"context"
	"errors"
	"log/slog"

	"portal/internal/middleware"
	"portal/internal/models"
	"portal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// IssueWSTicket handles POST /api/ws/ticket. The ticket is single use and
// short lived; browsers pass it as ?ticket= because they cannot set headers
// on the upgrade request.
// @Summary Issue a websocket ticket
// @Tags realtime
// @Produce json
// @Success 200 {object} object{ticket=string}
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	ticket, err := s.authService.IssueTicket(c.UserContext(), currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrTicketsUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "Realtime updates are unavailable",
			})
		}
		return models.RespondFromError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}

// WebsocketHandler streams the caller's profile change events. Admin
// connections also receive every other profile's events.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		ctx := context.Background()
		profileID, _ := conn.Locals(localUserID).(string)
		if profileID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		profile, err := s.profileRepo.GetByID(ctx, profileID)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "websocket profile lookup failed",
				slog.String("profile_id", profileID),
				slog.String("error", err.Error()))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(profileID, profile.CanUseConsole(), conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
