// Package approval implements the lifecycle of a profile's approval status.
//
// Transitions are pure: they mutate the given profile in memory and never touch
// storage. Callers persist the result inside their own transaction.
package approval

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"portal/internal/models"
)

// Event names a requested transition.
type Event string

const (
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
	EventResubmit Event = "resubmit"
)

// ErrInvalidTransition is returned when the profile is not in the state the
// event requires. The profile is left untouched.
var ErrInvalidTransition = errors.New("invalid approval transition")

// TransitionError describes a refused transition.
type TransitionError struct {
	From  models.ApprovalStatus
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a profile in state %q", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

var sources = map[Event]models.ApprovalStatus{
	EventApprove:  models.StatusPending,
	EventReject:   models.StatusPending,
	EventResubmit: models.StatusRejected,
}

var targets = map[Event]models.ApprovalStatus{
	EventApprove:  models.StatusApproved,
	EventReject:   models.StatusRejected,
	EventResubmit: models.StatusPending,
}

// CanTransition reports whether event may be applied to a profile in state from.
func CanTransition(from models.ApprovalStatus, event Event) bool {
	src, ok := sources[event]
	return ok && src == from
}

// Target returns the state an event leads to.
func Target(event Event) (models.ApprovalStatus, bool) {
	s, ok := targets[event]
	return s, ok
}

func check(p *models.Profile, event Event) error {
	if p == nil {
		return errors.New("approval: nil profile")
	}
	if !CanTransition(p.ApprovalStatus, event) {
		return &TransitionError{From: p.ApprovalStatus, Event: event}
	}
	return nil
}

// Approve moves a pending profile to approved.
func Approve(p *models.Profile, now time.Time) error {
	if err := check(p, EventApprove); err != nil {
		return err
	}
	p.ApprovalStatus = models.StatusApproved
	p.ApprovedAt = &now
	p.RejectionReason = nil
	p.UpdatedAt = now
	return nil
}

// Reject moves a pending profile to rejected. A blank reason is stored as null.
func Reject(p *models.Profile, reason string, now time.Time) error {
	if err := check(p, EventReject); err != nil {
		return err
	}
	p.ApprovalStatus = models.StatusRejected
	p.RejectedAt = &now
	p.RejectionReason = normalizeReason(reason)
	p.UpdatedAt = now
	return nil
}

// Resubmit returns a rejected profile to pending and clears the rejection.
func Resubmit(p *models.Profile, now time.Time) error {
	if err := check(p, EventResubmit); err != nil {
		return err
	}
	p.ApprovalStatus = models.StatusPending
	p.RejectionReason = nil
	p.RejectedAt = nil
	p.UpdatedAt = now
	return nil
}

// Apply dispatches event to the matching transition.
func Apply(p *models.Profile, event Event, reason string, now time.Time) error {
	switch event {
	case EventApprove:
		return Approve(p, now)
	case EventReject:
		return Reject(p, reason, now)
	case EventResubmit:
		return Resubmit(p, now)
	default:
		return fmt.Errorf("approval: unknown event %q", event)
	}
}

// Consistent reports whether the rejection fields agree with the status.
func Consistent(p *models.Profile) bool {
	if p == nil {
		return false
	}
	if p.ApprovalStatus != models.StatusRejected {
		return p.RejectionReason == nil
	}
	return true
}

func normalizeReason(reason string) *string {
	r := strings.TrimSpace(reason)
	if r == "" {
		return nil
	}
	return &r
}
