package sdk_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"portal/internal/models"
	"portal/internal/testutil"
	"portal/pkg/sdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, api *testutil.API, email string) *sdk.Client {
	t.Helper()
	c, err := sdk.New(api.URL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), email, testutil.Password)
	require.NoError(t, err)
	return c
}

func nextEvent(t *testing.T, s *sdk.Stream) models.ProfileEvent {
	t.Helper()
	select {
	case event, ok := <-s.Events():
		require.True(t, ok, "stream closed: %v", s.Err())
		return event
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}
	return models.ProfileEvent{}
}

func TestStream_ApprovalReachesStudentAndAdmin(t *testing.T) {
	api := testutil.StartAPI(t)
	testutil.SeedProfile(t, api.DB, "admin@uni.example", models.RoleAdmin, models.StatusApproved)
	student := testutil.SeedProfile(t, api.DB, "stu@uni.example", models.RoleStudent, models.StatusPending)
	testutil.SeedProfile(t, api.DB, "bystander@uni.example", models.RoleStudent, models.StatusPending)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adminClient := login(t, api, "admin@uni.example")
	studentClient := login(t, api, "stu@uni.example")
	bystanderClient := login(t, api, "bystander@uni.example")

	studentStream, err := studentClient.Subscribe(ctx)
	require.NoError(t, err)
	defer func() { _ = studentStream.Close() }()

	adminStream, err := adminClient.Subscribe(ctx)
	require.NoError(t, err)
	defer func() { _ = adminStream.Close() }()

	bystanderStream, err := bystanderClient.Subscribe(ctx)
	require.NoError(t, err)
	defer func() { _ = bystanderStream.Close() }()

	// Registration happens after the upgrade completes.
	require.Eventually(t, func() bool {
		return api.Server.Hub().ConnectionCount() == 3
	}, 2*time.Second, 20*time.Millisecond)

	approved, err := adminClient.ApproveUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.ApprovalStatus)

	for _, s := range []*sdk.Stream{studentStream, adminStream} {
		event := nextEvent(t, s)
		assert.Equal(t, student.ID, event.New.ID)
		assert.Equal(t, models.StatusApproved, event.New.ApprovalStatus)
	}

	select {
	case event := <-bystanderStream.Events():
		t.Fatalf("bystander received %s for %s", event.Type, event.New.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStream_CloseEndsEvents(t *testing.T) {
	api := testutil.StartAPI(t)
	testutil.SeedProfile(t, api.DB, "stu@uni.example", models.RoleStudent, models.StatusPending)
	c := login(t, api, "stu@uni.example")

	s, err := c.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
	_, ok := <-s.Events()
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestSubscribe_RequiresSession(t *testing.T) {
	api := testutil.StartAPI(t)
	c, err := sdk.New(api.URL)
	require.NoError(t, err)

	_, err = c.Subscribe(context.Background())
	assert.True(t, sdk.IsStatus(err, http.StatusUnauthorized), "got %v", err)
}
