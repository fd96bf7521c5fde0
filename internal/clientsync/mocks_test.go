package clientsync

import (
	"context"
	"sync"

	"portal/internal/models"
	"portal/pkg/sdk"

	"github.com/stretchr/testify/mock"
)

type fakeStream struct {
	ch     chan models.ProfileEvent
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan models.ProfileEvent, 16)}
}

func (s *fakeStream) Events() <-chan models.ProfileEvent { return s.ch }

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return nil
}

func (s *fakeStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) push(p *models.Profile) {
	s.ch <- models.NewProfileEvent(models.ProfileEventUpdate, nil, p)
}

type MockSource struct {
	mock.Mock
}

func (m *MockSource) FetchProfile(ctx context.Context) (*models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockSource) SubscribeEvents(ctx context.Context) (EventStream, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(EventStream), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SubscribeEvents(ctx context.Context) (EventStream, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(EventStream), args.Error(1)
}

func (m *MockGateway) ListProfiles(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Profile), args.Error(1)
}

func (m *MockGateway) ListPending(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Profile), args.Error(1)
}

func (m *MockGateway) Usage(ctx context.Context) (*sdk.Usage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sdk.Usage), args.Error(1)
}

func (m *MockGateway) Approve(ctx context.Context, uid string) (*models.Profile, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockGateway) Reject(ctx context.Context, uid, reason string) (*models.Profile, error) {
	args := m.Called(ctx, uid, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}
