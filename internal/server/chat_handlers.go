package server

import (
	"portal/internal/models"
	"portal/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Chat handles POST /api/chat. The chat backend's JSON body is returned as is.
// @Summary Send a chat message
// @Description Echoes the message when no chat backend is configured
// @Tags chat
// @Accept json
// @Produce json
// @Param request body validation.ChatRequest true "Message and optional conversation id"
// @Success 200 {object} object{role=string,content=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /chat [post]
func (s *Server) Chat(c *fiber.Ctx) error {
	var req validation.ChatRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	reply, err := s.chatService.Send(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondFromError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(reply.Body)
}

// GetConversations handles GET /api/conversations
// @Summary List own conversations
// @Tags chat
// @Produce json
// @Success 200 {array} models.Conversation
// @Security BearerAuth
// @Router /conversations [get]
func (s *Server) GetConversations(c *fiber.Ctx) error {
	convs, err := s.chatService.ListConversations(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(convs)
}

// CreateConversation handles POST /api/conversations
// @Summary Start a conversation
// @Tags chat
// @Accept json
// @Produce json
// @Param request body validation.CreateConversationRequest false "Optional title"
// @Success 201 {object} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req validation.CreateConversationRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	conv, err := s.chatService.CreateConversation(c.UserContext(), currentUserID(c), req)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// GetMessages handles GET /api/conversations/:id/messages
// @Summary Conversation history
// @Tags chat
// @Produce json
// @Param id path string true "Conversation ID"
// @Param limit query int false "Page size" default(100)
// @Success 200 {array} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	convID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 100)

	msgs, err := s.chatService.Messages(c.UserContext(), currentUserID(c), convID, page.Limit)
	if err != nil {
		return models.RespondFromError(c, err)
	}
	return c.JSON(msgs)
}
