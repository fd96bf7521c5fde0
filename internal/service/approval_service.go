package service

import (
	"context"
	"errors"
	"time"

	"portal/internal/approval"
	"portal/internal/models"
	"portal/internal/observability"
	"portal/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ApprovalService is the only path through which approval state changes.
// Privilege is always re-checked against the stored actor profile.
type ApprovalService struct {
	profiles  repository.ProfileRepository
	publisher EventPublisher
	audit     *observability.AuditLogger
	now       func() time.Time
}

// NewApprovalService returns a new ApprovalService.
func NewApprovalService(profiles repository.ProfileRepository, publisher EventPublisher) *ApprovalService {
	return &ApprovalService{
		profiles:  profiles,
		publisher: publisher,
		audit:     observability.NewAuditLogger("approval"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ApproveUser moves a pending profile to approved on behalf of actorID.
func (s *ApprovalService) ApproveUser(ctx context.Context, actorID, uid string) (*models.Profile, error) {
	if err := s.authorize(ctx, actorID); err != nil {
		return nil, err
	}
	now := s.now()
	return s.transition(ctx, actorID, uid, approval.EventApprove, func(p *models.Profile) error {
		return approval.Approve(p, now)
	})
}

// RejectUser moves a pending profile to rejected with an optional reason.
func (s *ApprovalService) RejectUser(ctx context.Context, actorID, uid, reason string) (*models.Profile, error) {
	if err := s.authorize(ctx, actorID); err != nil {
		return nil, err
	}
	now := s.now()
	return s.transition(ctx, actorID, uid, approval.EventReject, func(p *models.Profile) error {
		return approval.Reject(p, reason, now)
	})
}

// Resubmit returns the caller's own rejected profile to pending.
func (s *ApprovalService) Resubmit(ctx context.Context, ownerID string) (*models.Profile, error) {
	now := s.now()
	return s.transition(ctx, ownerID, ownerID, approval.EventResubmit, func(p *models.Profile) error {
		return approval.Resubmit(p, now)
	})
}

func (s *ApprovalService) authorize(ctx context.Context, actorID string) error {
	if actorID == "" {
		return models.NewUnauthorizedError("Authorization required")
	}
	actor, err := s.profiles.GetByID(ctx, actorID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewForbiddenError("Admin access required")
		}
		return err
	}
	if !actor.CanUseConsole() {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}

func (s *ApprovalService) transition(
	ctx context.Context,
	actorID, uid string,
	event approval.Event,
	apply func(p *models.Profile) error,
) (_ *models.Profile, err error) {
	ctx, finish := observability.StartSpan(ctx, "approval", string(event),
		attribute.String("actor.id", actorID),
		attribute.String("profile.id", uid),
	)
	defer func() { finish(err) }()

	before, after, err := s.profiles.Transition(ctx, uid, apply)
	if err != nil {
		if errors.Is(err, approval.ErrInvalidTransition) {
			observability.ApprovalTransitions.WithLabelValues(string(event), "conflict").Inc()
			return nil, models.NewConflictError(conflictMessage(err), err)
		}
		observability.ApprovalTransitions.WithLabelValues(string(event), "error").Inc()
		return nil, err
	}

	observability.ApprovalTransitions.WithLabelValues(string(event), "ok").Inc()
	s.audit.LogTransition(ctx, string(event), actorID, uid,
		string(before.ApprovalStatus), string(after.ApprovalStatus))
	publish(ctx, s.publisher, models.NewProfileEvent(models.ProfileEventUpdate, before, after))
	return after, nil
}

func conflictMessage(err error) string {
	var terr *approval.TransitionError
	if !errors.As(err, &terr) {
		return "Profile is not in a state that allows this change"
	}
	switch terr.Event {
	case approval.EventApprove:
		return "Only pending profiles can be approved"
	case approval.EventReject:
		return "Only pending profiles can be rejected"
	case approval.EventResubmit:
		return "Only rejected profiles can be resubmitted"
	}
	return terr.Error()
}
