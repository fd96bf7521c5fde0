// Package models defines the persistent records and API error types of the portal.
package models

import "time"

// Role is the coarse authorization role of a profile.
type Role string

const (
	// RoleStudent is the role every profile is created with.
	RoleStudent Role = "student"
	// RoleAdmin may review other profiles once approved.
	RoleAdmin Role = "admin"
)

// ApprovalStatus gates access to the main application.
type ApprovalStatus string

const (
	// StatusPending indicates the profile is awaiting review.
	StatusPending ApprovalStatus = "pending"
	// StatusApproved indicates the profile was accepted.
	StatusApproved ApprovalStatus = "approved"
	// StatusRejected indicates the profile was denied.
	StatusRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the three known states.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Navigation targets returned to clients after login and on status changes.
const (
	RouteAdmin   = "/admin"
	RouteApp     = "/app"
	RoutePending = "/pending"
)

// Profile is the application-level record of a user's role and approval state.
// Its ID equals the owning Account's ID.
type Profile struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email           string         `gorm:"size:320;not null;uniqueIndex" json:"email"`
	FullName        *string        `gorm:"size:200" json:"full_name"`
	YearOfStudy     *int           `json:"year_of_study"`
	Role            Role           `gorm:"type:varchar(20);not null;default:'student';index" json:"role"`
	ApprovalStatus  ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"approval_status"`
	RejectionReason *string        `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	RejectedAt      *time.Time     `json:"rejected_at"`
}

// TableName pins the table name used by the change feed.
func (Profile) TableName() string {
	return "profiles"
}

// IsAdmin reports whether the profile holds the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// CanUseConsole reports whether the profile may use the admin console.
// Admins must additionally be approved.
func (p *Profile) CanUseConsole() bool {
	return p.IsAdmin() && p.ApprovalStatus == StatusApproved
}

// CanUseApp reports whether the profile may use the main application.
func (p *Profile) CanUseApp() bool {
	return p != nil && (p.IsAdmin() || p.ApprovalStatus == StatusApproved)
}

// Destination is where a client holding this profile should be routed.
func (p *Profile) Destination() string {
	switch {
	case p.IsAdmin():
		return RouteAdmin
	case p != nil && p.ApprovalStatus == StatusApproved:
		return RouteApp
	default:
		return RoutePending
	}
}

// Clone returns a deep copy so callers can snapshot state before mutating it.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.FullName != nil {
		v := *p.FullName
		cp.FullName = &v
	}
	if p.YearOfStudy != nil {
		v := *p.YearOfStudy
		cp.YearOfStudy = &v
	}
	if p.RejectionReason != nil {
		v := *p.RejectionReason
		cp.RejectionReason = &v
	}
	if p.ApprovedAt != nil {
		v := *p.ApprovedAt
		cp.ApprovedAt = &v
	}
	if p.RejectedAt != nil {
		v := *p.RejectedAt
		cp.RejectedAt = &v
	}
	return &cp
}

// UsageStats are the admin console's headline counts.
type UsageStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// ProfileFilter narrows admin profile listings. Empty fields match everything.
type ProfileFilter struct {
	Status ApprovalStatus
	Role   Role
	Limit  int
	Offset int
}
