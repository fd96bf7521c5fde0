package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/models"
	"portal/internal/notifications"
	"portal/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T, withRedis bool) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	env := &testEnv{db: db}

	var rdb *redis.Client
	if withRedis {
		env.mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		JWTTTLHours:  1,
		FeatureFlags: "chat_assistant=on",
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	env.srv = srv
	env.app = srv.NewApp()
	return env
}

func (e *testEnv) seedProfile(t *testing.T, email string, role models.Role, status models.ApprovalStatus) *models.Profile {
	t.Helper()
	account := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: "x"}
	profile := &models.Profile{Email: email, Role: role, ApprovalStatus: status}
	require.NoError(t, repository.NewAccountRepository(e.db).CreateWithProfile(context.Background(), account, profile))
	return profile
}

func (e *testEnv) tokenFor(t *testing.T, profileID string) string {
	t.Helper()
	token, _, err := e.srv.tokens.Issue(profileID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) allow(t *testing.T, emails ...string) {
	t.Helper()
	entries := make([]models.AllowedEmail, 0, len(emails))
	for _, email := range emails {
		entries = append(entries, models.AllowedEmail{Email: email})
	}
	_, err := repository.NewAllowlistRepository(e.db).Upsert(context.Background(), entries...)
	require.NoError(t, err)
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, true)

	status, _ := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"healthy"`)

	env.mr.Close()
	status, _ = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t, true)
	env.allow(t, "ada@uni.example")

	t.Run("invalid input is 400", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email": "not-an-email", "password": "longenough",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, models.CodeValidation, decode[models.ErrorResponse](t, body).Code)
	})

	t.Run("short password is 400", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email": "ada@uni.example", "password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/auth/signup", "", "{")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("address off the allow-list is 403", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email": "mallory@uni.example", "password": "longenough",
		})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Contains(t, decode[models.ErrorResponse](t, body).Error, "not allowed to sign up")
	})

	t.Run("allowed address is created pending", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email": "  Ada@Uni.Example ", "password": "longenough", "full_name": "Ada Lovelace", "year_of_study": 2,
		})
		require.Equal(t, http.StatusCreated, status, string(body))

		var res struct {
			User struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"user"`
			Profile models.Profile `json:"profile"`
		}
		require.NoError(t, json.Unmarshal(body, &res))
		assert.Equal(t, "ada@uni.example", res.User.Email)
		assert.Equal(t, res.User.ID, res.Profile.ID)
		assert.Equal(t, models.StatusPending, res.Profile.ApprovalStatus)
		assert.Equal(t, models.RoleStudent, res.Profile.Role)
		require.NotNil(t, res.Profile.FullName)
		assert.Equal(t, "Ada Lovelace", *res.Profile.FullName)
	})

	t.Run("second signup for the same address is 409", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email": "ada@uni.example", "password": "longenough",
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, body).Code)
	})

	t.Run("storage failure is 500", func(t *testing.T) {
		sqlDB, err := env.db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		status, _ := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email": "ada@uni.example", "password": "longenough",
		})
		assert.Equal(t, http.StatusInternalServerError, status)
	})
}

func TestLoginRedirectsByStatus(t *testing.T) {
	env := newTestEnv(t, true)
	env.allow(t, "grace@uni.example")

	status, body := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "grace@uni.example", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "grace@uni.example", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status, string(body))

	status, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "GRACE@uni.example", "password": "longenough",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	login := decode[map[string]any](t, body)
	assert.Equal(t, models.RoutePending, login["redirect"])
	assert.NotEmpty(t, login["token"])

	token := login["token"].(string)
	status, body = env.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "grace@uni.example", decode[models.Profile](t, body).Email)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, true)
	p := env.seedProfile(t, "lin@uni.example", models.RoleStudent, models.StatusPending)
	token := env.tokenFor(t, p.ID)

	status, _ := env.do(t, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/api/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", decode[models.ErrorResponse](t, body).Error)
}

func TestUpdateMyProfile(t *testing.T) {
	env := newTestEnv(t, false)
	p := env.seedProfile(t, "kim@uni.example", models.RoleStudent, models.StatusPending)
	token := env.tokenFor(t, p.ID)

	status, body := env.do(t, http.MethodPatch, "/api/profile", token, map[string]any{
		"full_name": "  Kim Park ", "year_of_study": 3,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decode[models.Profile](t, body)
	require.NotNil(t, updated.FullName)
	assert.Equal(t, "Kim Park", *updated.FullName)
	assert.Equal(t, models.StatusPending, updated.ApprovalStatus)

	status, _ = env.do(t, http.MethodPatch, "/api/profile", token, map[string]any{"year_of_study": 99})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestApprovalRPC(t *testing.T) {
	env := newTestEnv(t, false)
	admin := env.seedProfile(t, "admin@uni.example", models.RoleAdmin, models.StatusApproved)
	student := env.seedProfile(t, "stu@uni.example", models.RoleStudent, models.StatusApproved)
	pending := env.seedProfile(t, "new@uni.example", models.RoleStudent, models.StatusPending)
	other := env.seedProfile(t, "other@uni.example", models.RoleStudent, models.StatusPending)

	adminToken := env.tokenFor(t, admin.ID)
	studentToken := env.tokenFor(t, student.ID)

	t.Run("student cannot approve", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/rpc/approve_user", studentToken, map[string]any{"uid": pending.ID})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unauthenticated is 401", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/rpc/approve_user", "", map[string]any{"uid": pending.ID})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("malformed uid is 400", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/rpc/approve_user", adminToken, map[string]any{"uid": "42"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown uid is 404", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/rpc/approve_user", adminToken, map[string]any{"uid": uuid.NewString()})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("admin approves pending profile", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/rpc/approve_user", adminToken, map[string]any{"uid": pending.ID})
		require.Equal(t, http.StatusOK, status, string(body))
		p := decode[models.Profile](t, body)
		assert.Equal(t, models.StatusApproved, p.ApprovalStatus)
		assert.NotNil(t, p.ApprovedAt)
	})

	t.Run("approving twice is 409", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/rpc/approve_user", adminToken, map[string]any{"uid": pending.ID})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "Only pending profiles can be approved", decode[models.ErrorResponse](t, body).Error)
	})

	t.Run("admin rejects with reason", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/rpc/reject_user", adminToken, map[string]any{
			"uid": other.ID, "reason": "Not enrolled",
		})
		require.Equal(t, http.StatusOK, status, string(body))
		p := decode[models.Profile](t, body)
		assert.Equal(t, models.StatusRejected, p.ApprovalStatus)
		require.NotNil(t, p.RejectionReason)
		assert.Equal(t, "Not enrolled", *p.RejectionReason)
	})

	t.Run("rejected owner resubmits", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/profile/resubmit", env.tokenFor(t, other.ID), nil)
		require.Equal(t, http.StatusOK, status, string(body))
		assert.Equal(t, models.StatusPending, decode[models.Profile](t, body).ApprovalStatus)

		status, _ = env.do(t, http.MethodPost, "/api/profile/resubmit", env.tokenFor(t, other.ID), nil)
		assert.Equal(t, http.StatusConflict, status)
	})
}

func TestApprovalReachesFeed(t *testing.T) {
	env := newTestEnv(t, false)
	admin := env.seedProfile(t, "admin@uni.example", models.RoleAdmin, models.StatusApproved)
	pending := env.seedProfile(t, "new@uni.example", models.RoleStudent, models.StatusPending)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, env.srv.StartRealtime(ctx))

	sub := env.srv.Feed().Subscribe(notifications.Filter{ProfileID: pending.ID}, 4)
	defer sub.Unsubscribe()

	status, _ := env.do(t, http.MethodPost, "/api/rpc/approve_user", env.tokenFor(t, admin.ID), map[string]any{"uid": pending.ID})
	require.Equal(t, http.StatusOK, status)

	select {
	case event := <-sub.C():
		assert.Equal(t, models.ProfileEventUpdate, event.Type)
		require.NotNil(t, event.Old)
		assert.Equal(t, models.StatusPending, event.Old.ApprovalStatus)
		assert.Equal(t, models.StatusApproved, event.New.ApprovalStatus)
	case <-time.After(2 * time.Second):
		t.Fatal("approval event not delivered")
	}
}

func TestAdminConsole(t *testing.T) {
	env := newTestEnv(t, true)
	admin := env.seedProfile(t, "admin@uni.example", models.RoleAdmin, models.StatusApproved)
	student := env.seedProfile(t, "stu@uni.example", models.RoleStudent, models.StatusApproved)
	env.seedProfile(t, "p1@uni.example", models.RoleStudent, models.StatusPending)
	env.seedProfile(t, "p2@uni.example", models.RoleStudent, models.StatusPending)

	adminToken := env.tokenFor(t, admin.ID)

	status, _ := env.do(t, http.MethodGet, "/api/admin/usage", env.tokenFor(t, student.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodGet, "/api/admin/usage", adminToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	usage := decode[map[string]any](t, body)
	assert.EqualValues(t, 4, usage["total"])
	assert.EqualValues(t, 2, usage["pending"])

	status, body = env.do(t, http.MethodGet, "/api/admin/profiles/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Profile](t, body), 2)

	status, body = env.do(t, http.MethodGet, "/api/admin/profiles?status=approved", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Profile](t, body), 2)

	status, _ = env.do(t, http.MethodGet, "/api/admin/profiles?status=bogus", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/api/admin/feature-flags", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"chat_assistant":true`)
}

func TestAdminAllowlist(t *testing.T) {
	env := newTestEnv(t, false)
	admin := env.seedProfile(t, "admin@uni.example", models.RoleAdmin, models.StatusApproved)
	token := env.tokenFor(t, admin.ID)

	status, body := env.do(t, http.MethodPost, "/api/admin/allowlist", token, map[string]any{"email": "One@Uni.Example"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = env.do(t, http.MethodPost, "/api/admin/allowlist", token, []map[string]any{
		{"email": "two@uni.example", "note": "transfer"},
		{"email": "three@uni.example"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, _ = env.do(t, http.MethodPost, "/api/admin/allowlist", token, []map[string]any{{"email": "nope"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/api/admin/allowlist", token, nil)
	require.Equal(t, http.StatusOK, status)
	entries := decode[[]models.AllowedEmail](t, body)
	emails := make([]string, 0, len(entries))
	for _, e := range entries {
		emails = append(emails, e.Email)
	}
	assert.ElementsMatch(t, []string{"one@uni.example", "two@uni.example", "three@uni.example"}, emails)

	status, _ = env.do(t, http.MethodDelete, "/api/admin/allowlist/two@uni.example", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = env.do(t, http.MethodGet, "/api/admin/allowlist", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.AllowedEmail](t, body), 2)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, false)
	approved := env.seedProfile(t, "chat@uni.example", models.RoleStudent, models.StatusApproved)
	pending := env.seedProfile(t, "wait@uni.example", models.RoleStudent, models.StatusPending)
	token := env.tokenFor(t, approved.ID)

	t.Run("pending profile is refused", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/chat", env.tokenFor(t, pending.ID), map[string]any{"content": "hi"})
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "Your account is awaiting approval", decode[models.ErrorResponse](t, body).Error)
	})

	t.Run("blank content is 400", func(t *testing.T) {
		status, _ := env.do(t, http.MethodPost, "/api/chat", token, map[string]any{"content": "   "})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("echo without a configured backend", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/chat", token, map[string]any{"content": "hello"})
		require.Equal(t, http.StatusOK, status, string(body))
		reply := decode[map[string]string](t, body)
		assert.Equal(t, "assistant", reply["role"])
		assert.Equal(t, "Echo: hello", reply["content"])
	})

	t.Run("conversation history is stored", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/conversations", token, map[string]any{"title": "Revision"})
		require.Equal(t, http.StatusCreated, status, string(body))
		conv := decode[models.Conversation](t, body)

		status, _ = env.do(t, http.MethodPost, "/api/chat", token, map[string]any{
			"content": "first", "conversationId": conv.ID,
		})
		require.Equal(t, http.StatusOK, status)

		status, body = env.do(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", token, nil)
		require.Equal(t, http.StatusOK, status)
		msgs := decode[[]models.Message](t, body)
		require.Len(t, msgs, 2)
		assert.Equal(t, models.MessageRoleUser, msgs[0].Role)
		assert.Equal(t, models.MessageRoleAssistant, msgs[1].Role)
		assert.Equal(t, "Echo: first", msgs[1].Content)

		status, body = env.do(t, http.MethodGet, "/api/conversations", token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, decode[[]models.Conversation](t, body), 1)
	})

	t.Run("malformed conversation id is 400", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/api/conversations/abc/messages", token, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestWebsocketTickets(t *testing.T) {
	env := newTestEnv(t, true)
	p := env.seedProfile(t, "ws@uni.example", models.RoleStudent, models.StatusPending)
	token := env.tokenFor(t, p.ID)

	status, body := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	ticket := decode[map[string]string](t, body)["ticket"]
	require.NotEmpty(t, ticket)
	assert.True(t, env.mr.Exists("ws_ticket:"+ticket))

	t.Run("bearer token alone cannot open the stream", func(t *testing.T) {
		status, body := env.do(t, http.MethodGet, "/api/ws", token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "WebSocket ticket required", decode[models.ErrorResponse](t, body).Error)
	})

	t.Run("unknown ticket is refused", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/api/ws?ticket=nope", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("ticket does not authenticate other routes", func(t *testing.T) {
		status, body := env.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		other := decode[map[string]string](t, body)["ticket"]

		status, body = env.do(t, http.MethodGet, "/api/profile?ticket="+other, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Authorization required", decode[models.ErrorResponse](t, body).Error)

		status, _ = env.do(t, http.MethodPost, "/api/rpc/approve_user?ticket="+other, "", map[string]any{"uid": p.ID})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.True(t, env.mr.Exists("ws_ticket:"+other), "ticket must stay unredeemed")
	})

	t.Run("ticket is single use", func(t *testing.T) {
		status, _ := env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, "", nil)
		assert.Equal(t, http.StatusUpgradeRequired, status)
		assert.False(t, env.mr.Exists("ws_ticket:"+ticket))

		status, _ = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestWebsocketTicketsWithoutRedis(t *testing.T) {
	env := newTestEnv(t, false)
	p := env.seedProfile(t, "ws@uni.example", models.RoleStudent, models.StatusPending)

	status, _ := env.do(t, http.MethodPost, "/api/ws/ticket", env.tokenFor(t, p.ID), nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
