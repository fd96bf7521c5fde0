package clientsync_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"portal/internal/clientsync"
	"portal/internal/models"
	"portal/internal/testutil"
	"portal/pkg/sdk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(t *testing.T, api *testutil.API, email string) (*clientsync.Session, string) {
	t.Helper()
	client, err := sdk.New(api.URL)
	require.NoError(t, err)
	s, route, err := clientsync.Login(context.Background(), client, email, testutil.Password)
	require.NoError(t, err)
	return s, route
}

func TestEndToEnd_ApproveRedirectsStudentOnce(t *testing.T) {
	api := testutil.StartAPI(t)
	testutil.SeedProfile(t, api.DB, "admin@uni.example", models.RoleAdmin, models.StatusApproved)
	student := testutil.SeedProfile(t, api.DB, "stu@uni.example", models.RoleStudent, models.StatusPending)

	studentSession, route := session(t, api, "stu@uni.example")
	assert.Equal(t, models.RoutePending, route)
	adminSession, route := session(t, api, "admin@uni.example")
	assert.Equal(t, models.RouteAdmin, route)

	var redirects atomic.Int32
	var landed atomic.Value
	watcher := clientsync.NewStatusWatcher(studentSession, clientsync.StatusWatcherConfig{
		Interval: 100 * time.Millisecond,
		OnApproved: func(_ *models.Profile, route string) {
			redirects.Add(1)
			landed.Store(route)
		},
	})
	require.NoError(t, watcher.Start(context.Background()))
	defer watcher.Stop()

	board := clientsync.NewAdminBoard(adminSession)
	require.NoError(t, board.Refresh(context.Background()))
	require.Len(t, board.Pending(), 1)

	_, err := board.Approve(context.Background(), student.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return redirects.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	// Let a few more polls observe the approved row.
	time.Sleep(300 * time.Millisecond)
	assert.EqualValues(t, 1, redirects.Load())
	assert.Equal(t, models.RouteApp, landed.Load())
	assert.Empty(t, board.Pending())
}

func TestEndToEnd_RejectShowsReason(t *testing.T) {
	api := testutil.StartAPI(t)
	testutil.SeedProfile(t, api.DB, "admin@uni.example", models.RoleAdmin, models.StatusApproved)
	student := testutil.SeedProfile(t, api.DB, "stu@uni.example", models.RoleStudent, models.StatusPending)

	studentSession, _ := session(t, api, "stu@uni.example")
	adminSession, _ := session(t, api, "admin@uni.example")

	var redirected atomic.Bool
	watcher := clientsync.NewStatusWatcher(studentSession, clientsync.StatusWatcherConfig{
		Interval:   100 * time.Millisecond,
		OnApproved: func(*models.Profile, string) { redirected.Store(true) },
	})
	require.NoError(t, watcher.Start(context.Background()))
	defer watcher.Stop()

	board := clientsync.NewAdminBoard(adminSession)
	require.NoError(t, board.Refresh(context.Background()))
	_, err := board.Reject(context.Background(), student.ID, "incomplete info")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		cur := watcher.Current()
		return cur != nil && cur.ApprovalStatus == models.StatusRejected
	}, 3*time.Second, 10*time.Millisecond)
	require.NotNil(t, watcher.Current().RejectionReason)
	assert.Equal(t, "incomplete info", *watcher.Current().RejectionReason)
	assert.False(t, redirected.Load())

	p, err := studentSession.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, p.ApprovalStatus)
	assert.Equal(t, models.StatusRejected, studentSession.Profile().ApprovalStatus)
}

func TestEndToEnd_StudentCannotUseBoard(t *testing.T) {
	api := testutil.StartAPI(t)
	testutil.SeedProfile(t, api.DB, "stu@uni.example", models.RoleStudent, models.StatusApproved)
	other := testutil.SeedProfile(t, api.DB, "other@uni.example", models.RoleStudent, models.StatusPending)

	s, _ := session(t, api, "stu@uni.example")
	board := clientsync.NewAdminBoard(s)
	err := board.Refresh(context.Background())
	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)

	_, err = board.Approve(context.Background(), other.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
}
