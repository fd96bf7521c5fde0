// Package service provides application business logic (signup, approvals, chat, etc.).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"portal/internal/cache"
	"portal/internal/middleware"
	"portal/internal/models"
	"portal/internal/observability"
	"portal/internal/repository"
	"portal/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// NotAllowedMessage is the signup refusal shown to addresses missing from the allow-list.
const NotAllowedMessage = "This email address is not allowed to sign up. If you believe this is an error, contact support."

// EventPublisher receives committed profile changes.
type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, event models.ProfileEvent) error
}

// AuthService handles signup, login, logout and websocket tickets.
type AuthService struct {
	accounts  repository.AccountRepository
	profiles  repository.ProfileRepository
	allowlist repository.AllowlistRepository
	tokens    *middleware.TokenManager
	redis     *redis.Client
	publisher EventPublisher
	hashCost  int
}

// NewAuthService returns a new AuthService. redis and publisher may be nil.
func NewAuthService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	allowlist repository.AllowlistRepository,
	tokens *middleware.TokenManager,
	rdb *redis.Client,
	publisher EventPublisher,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		profiles:  profiles,
		allowlist: allowlist,
		tokens:    tokens,
		redis:     rdb,
		publisher: publisher,
		hashCost:  bcrypt.DefaultCost,
	}
}

// SignupResult is the created account and its pending profile.
type SignupResult struct {
	Account *models.Account
	Profile *models.Profile
}

// LoginResult carries the session token and where the client should go next.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Profile   *models.Profile
	Redirect  string
}

// Signup validates the request, checks the allow-list and creates the account
// with a pending student profile in one transaction.
func (s *AuthService) Signup(ctx context.Context, req validation.SignupRequest) (*SignupResult, error) {
	req.Normalize()
	if err := validation.Struct(&req); err != nil {
		observability.SignupOutcomes.WithLabelValues("invalid").Inc()
		return nil, models.NewValidationError(err.Error())
	}

	allowed, err := s.allowlist.IsAllowed(ctx, req.Email)
	if err != nil {
		observability.SignupOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}
	if !allowed {
		observability.SignupOutcomes.WithLabelValues("not_allowed").Inc()
		return nil, models.NewForbiddenError(NotAllowedMessage)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		observability.SignupOutcomes.WithLabelValues("error").Inc()
		return nil, models.NewInternalError(err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	profile := &models.Profile{
		Email:          req.Email,
		FullName:       req.FullName,
		YearOfStudy:    req.YearOfStudy,
		Role:           models.RoleStudent,
		ApprovalStatus: models.StatusPending,
	}
	if err := s.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		if models.IsCode(err, models.CodeConflict) {
			observability.SignupOutcomes.WithLabelValues("conflict").Inc()
		} else {
			observability.SignupOutcomes.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	observability.SignupOutcomes.WithLabelValues("created").Inc()
	publish(ctx, s.publisher, models.NewProfileEvent(models.ProfileEventInsert, nil, profile))

	return &SignupResult{Account: account, Profile: profile}, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, req validation.LoginRequest) (*LoginResult, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	account, err := s.accounts.GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	profile, err := s.profiles.GetByID(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile:   profile,
		Redirect:  profile.Destination(),
	}, nil
}

// Logout revokes the token identified by claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if claims == nil || claims.ID == "" || s.redis == nil {
		return nil
	}
	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
		return models.NewInternalError(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

// IsRevoked reports whether a token id was logged out. Redis failures fail open.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	if jti == "" || s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "blacklist lookup failed", slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

// ErrTicketsUnavailable is returned when websocket tickets cannot be stored.
var ErrTicketsUnavailable = errors.New("websocket tickets require redis")

// IssueTicket stores a single-use websocket ticket for profileID.
func (s *AuthService) IssueTicket(ctx context.Context, profileID string) (string, error) {
	if s.redis == nil {
		return "", ErrTicketsUnavailable
	}
	ticket := uuid.NewString()
	if err := s.redis.Set(ctx, cache.WSTicketKey(ticket), profileID, cache.WSTicketTTL).Err(); err != nil {
		return "", fmt.Errorf("store ticket: %w", err)
	}
	return ticket, nil
}

// RedeemTicket consumes a websocket ticket and returns its profile id.
func (s *AuthService) RedeemTicket(ctx context.Context, ticket string) (string, bool) {
	if ticket == "" || s.redis == nil {
		return "", false
	}
	profileID, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil || profileID == "" {
		return "", false
	}
	return profileID, true
}

// publish sends a committed change and logs failures.
func publish(ctx context.Context, p EventPublisher, event models.ProfileEvent) {
	if p == nil {
		return
	}
	if err := p.PublishProfileEvent(ctx, event); err != nil {
		observability.LogAsyncOperationError(ctx, "publish_profile_event", err, map[string]any{
			"profile_id": event.SubjectID(),
			"type":       string(event.Type),
		})
	}
}
