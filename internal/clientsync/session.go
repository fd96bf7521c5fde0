package clientsync

import (
	"context"
	"sync"

	"portal/internal/models"
	"portal/pkg/sdk"
)

// EventStream is a live feed of profile change events.
type EventStream interface {
	Events() <-chan models.ProfileEvent
	Close() error
}

// ProfileSource is what a StatusWatcher needs from the API.
type ProfileSource interface {
	FetchProfile(ctx context.Context) (*models.Profile, error)
	SubscribeEvents(ctx context.Context) (EventStream, error)
}

// Gateway is what an AdminBoard needs from the API.
type Gateway interface {
	SubscribeEvents(ctx context.Context) (EventStream, error)
	ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	ListPending(ctx context.Context) ([]models.Profile, error)
	Usage(ctx context.Context) (*sdk.Usage, error)
	Approve(ctx context.Context, uid string) (*models.Profile, error)
	Reject(ctx context.Context, uid, reason string) (*models.Profile, error)
}

// Session is one signed-in client. It owns the API client and the caller's
// latest profile, and is handed to each controller explicitly.
type Session struct {
	client *sdk.Client

	mu      sync.RWMutex
	profile *models.Profile
}

// Login signs in and returns a session plus the route the caller belongs on.
func Login(ctx context.Context, client *sdk.Client, email, password string) (*Session, string, error) {
	res, err := client.Login(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	s := NewSession(client, &res.Profile)
	return s, Destination(&res.Profile), nil
}

// NewSession wraps an authenticated client. profile may be nil until Refresh.
func NewSession(client *sdk.Client, profile *models.Profile) *Session {
	return &Session{client: client, profile: profile.Clone()}
}

// Client returns the underlying API client.
func (s *Session) Client() *sdk.Client {
	return s.client
}

// Profile returns the last profile the session saw.
func (s *Session) Profile() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.Clone()
}

// Refresh re-reads the caller's profile from the server.
func (s *Session) Refresh(ctx context.Context) (*models.Profile, error) {
	p, err := s.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.remember(p)
	return p.Clone(), nil
}

func (s *Session) remember(p *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil || s.profile.ID != p.ID || p.UpdatedAt.After(s.profile.UpdatedAt) {
		s.profile = p.Clone()
	}
}

// FetchProfile implements ProfileSource.
func (s *Session) FetchProfile(ctx context.Context) (*models.Profile, error) {
	return s.Refresh(ctx)
}

// SubscribeEvents implements ProfileSource and Gateway.
func (s *Session) SubscribeEvents(ctx context.Context) (EventStream, error) {
	stream, err := s.client.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// ListProfiles implements Gateway.
func (s *Session) ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	return s.client.Profiles(ctx, filter)
}

// ListPending implements Gateway.
func (s *Session) ListPending(ctx context.Context) ([]models.Profile, error) {
	return s.client.PendingProfiles(ctx)
}

// Usage implements Gateway.
func (s *Session) Usage(ctx context.Context) (*sdk.Usage, error) {
	return s.client.Usage(ctx)
}

// Approve implements Gateway.
func (s *Session) Approve(ctx context.Context, uid string) (*models.Profile, error) {
	return s.client.ApproveUser(ctx, uid)
}

// Reject implements Gateway.
func (s *Session) Reject(ctx context.Context, uid, reason string) (*models.Profile, error) {
	return s.client.RejectUser(ctx, uid, reason)
}

// Destination is the route a client holding p should show.
func Destination(p *models.Profile) string {
	return p.Destination()
}
