package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"portal/internal/chatproxy"
	"portal/internal/featureflags"
	"portal/internal/models"
	"portal/internal/observability"
	"portal/internal/repository"
	"portal/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ChatBackend answers a single chat message.
type ChatBackend interface {
	Send(ctx context.Context, req chatproxy.Request) (*chatproxy.Reply, error)
}

// ChatService provides chat and conversation business logic.
type ChatService struct {
	chatRepo repository.ChatRepository
	backend  ChatBackend
	flags    *featureflags.Manager
	now      func() time.Time
}

// NewChatService returns a new ChatService. A nil flags manager leaves the
// assistant enabled for everyone.
func NewChatService(chatRepo repository.ChatRepository, backend ChatBackend, flags *featureflags.Manager) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		backend:  backend,
		flags:    flags,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Send forwards a message to the chat backend. When the request names a
// conversation owned by the caller, the message and the assistant's reply are
// stored in it.
func (s *ChatService) Send(ctx context.Context, ownerID string, req validation.ChatRequest) (_ *chatproxy.Reply, err error) {
	ctx, finish := observability.StartSpan(ctx, "chat", "send",
		attribute.String("owner.id", ownerID),
		attribute.Bool("chat.stored", req.ConversationID != ""),
	)
	defer func() { finish(err) }()

	if err := validation.Struct(&req); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if s.flags != nil && !s.flags.Enabled(featureflags.ChatAssistant, ownerID) {
		return nil, models.NewForbiddenError("Chat assistant is not available")
	}

	var conv *models.Conversation
	if req.ConversationID != "" {
		c, err := s.ownedConversation(ctx, ownerID, req.ConversationID)
		if err != nil {
			return nil, err
		}
		conv = c
	}

	var sent time.Time
	if conv != nil {
		userMsg := &models.Message{
			ConversationID: conv.ID,
			Role:           models.MessageRoleUser,
			Content:        req.Content,
			CreatedAt:      s.now(),
		}
		if err := s.chatRepo.CreateMessages(ctx, userMsg); err != nil {
			return nil, err
		}
		sent = userMsg.CreatedAt
	}

	reply, err := s.backend.Send(ctx, chatproxy.Request{
		Content:        req.Content,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		var apiErr *chatproxy.APIError
		if errors.As(err, &apiErr) {
			return nil, &models.AppError{Code: models.CodeInternal, Message: apiErr.Message, Err: err}
		}
		return nil, &models.AppError{Code: models.CodeInternal, Message: err.Error(), Err: err}
	}

	if conv != nil && strings.TrimSpace(reply.Content) != "" {
		at := s.now()
		if !at.After(sent) {
			at = sent.Add(time.Millisecond)
		}
		assistant := &models.Message{
			ConversationID: conv.ID,
			Role:           models.MessageRoleAssistant,
			Content:        reply.Content,
			CreatedAt:      at,
		}
		if err := s.chatRepo.CreateMessages(ctx, assistant); err != nil {
			return nil, err
		}
	}

	return reply, nil
}

// CreateConversation starts a conversation for ownerID.
func (s *ChatService) CreateConversation(ctx context.Context, ownerID string, req validation.CreateConversationRequest) (*models.Conversation, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(&req); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	conv := &models.Conversation{OwnerID: ownerID, Title: req.Title}
	if err := s.chatRepo.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations returns the caller's conversations, newest first.
func (s *ChatService) ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	return s.chatRepo.ListConversations(ctx, ownerID)
}

// Messages returns a conversation's history in send order.
func (s *ChatService) Messages(ctx context.Context, ownerID, convID string, limit int) ([]models.Message, error) {
	if _, err := s.ownedConversation(ctx, ownerID, convID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListMessages(ctx, convID, limit)
}

// ownedConversation hides conversations of other owners behind NOT_FOUND.
func (s *ChatService) ownedConversation(ctx context.Context, ownerID, convID string) (*models.Conversation, error) {
	conv, err := s.chatRepo.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != ownerID {
		return nil, models.NewNotFoundError("Conversation", convID)
	}
	return conv, nil
}
