package validation

import "strings"

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email       string  `json:"email" validate:"required,portal_email"`
	Password    string  `json:"password" validate:"required,min=8"`
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=200"`
	YearOfStudy *int    `json:"year_of_study,omitempty" validate:"omitempty,min=1,max=10"`
}

// Normalize trims input fields in place. Email is lowercased.
func (r *SignupRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.FullName = trimmedOrNil(r.FullName)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest carries the fields an owner may change.
type UpdateProfileRequest struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=200"`
	YearOfStudy *int    `json:"year_of_study,omitempty" validate:"omitempty,min=1,max=10"`
}

// Normalize trims the name in place.
func (r *UpdateProfileRequest) Normalize() {
	r.FullName = trimmedOrNil(r.FullName)
}

// ApproveRequest is the body of POST /api/rpc/approve_user.
type ApproveRequest struct {
	UID string `json:"uid" validate:"required,uuid"`
}

// RejectRequest is the body of POST /api/rpc/reject_user.
type RejectRequest struct {
	UID    string `json:"uid" validate:"required,uuid"`
	Reason string `json:"reason" validate:"max=1000"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Content        string `json:"content" validate:"required,not_blank,max=8000"`
	ConversationID string `json:"conversationId,omitempty" validate:"omitempty,uuid"`
}

// CreateConversationRequest is the body of POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// AllowedEmailRequest is the body of POST /api/admin/allowlist.
type AllowedEmailRequest struct {
	Email string `json:"email" validate:"required,portal_email"`
	Note  string `json:"note" validate:"max=255"`
}
