// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"portal/internal/cache"
	"portal/internal/chatproxy"
	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/featureflags"
	"portal/internal/middleware"
	"portal/internal/models"
	"portal/internal/notifications"
	"portal/internal/repository"
	"portal/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// globalRateLimit is the per-IP request budget per minute across all routes.
// Preflight requests are exempt.
const globalRateLimit = 100

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens       *middleware.TokenManager
	profileRepo  repository.ProfileRepository
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	feed         *notifications.Feed
	featureFlags *featureflags.Manager

	authService     *service.AuthService
	approvalService *service.ApprovalService
	profileService  *service.ProfileService
	adminService    *service.AdminService
	chatService     *service.ChatService
}

// NewServer connects to the database and Redis and builds a server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: events are then delivered in-process only and
// websocket tickets are unavailable.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	profileRepo := repository.NewProfileRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	allowlistRepo := repository.NewAllowlistRepository(db)
	chatRepo := repository.NewChatRepository(db)

	tokens := middleware.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	notifier := notifications.NewNotifier(redisClient)
	hub := notifications.NewHub(redisClient)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("portal-api"),
		tokens:         tokens,
		profileRepo:    profileRepo,
		notifier:       notifier,
		hub:            hub,
		feed:           notifications.NewFeed(),
		featureFlags:   flags,
	}

	s.authService = service.NewAuthService(accountRepo, profileRepo, allowlistRepo, tokens, redisClient, notifier)
	s.approvalService = service.NewApprovalService(profileRepo, notifier)
	s.profileService = service.NewProfileService(profileRepo, notifier)
	s.adminService = service.NewAdminService(profileRepo, allowlistRepo, hub.Presence(), notifier)
	s.chatService = service.NewChatService(
		chatRepo,
		chatproxy.NewClient(cfg.ChatServiceURL, cfg.ChatServiceKey),
		flags,
	)

	return s, nil
}

// Feed exposes the in-process profile change feed.
func (s *Server) Feed() *notifications.Feed {
	return s.feed
}

// Hub exposes the websocket hub.
func (s *Server) Hub() *notifications.Hub {
	return s.hub
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS must run before anything that can short-circuit so error
	// responses still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        globalRateLimit,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	signupLimit := s.config.SignupRateLimit
	if signupLimit <= 0 {
		signupLimit = 5
	}
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, signupLimit, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Registered ahead of the protected group so the ticket is redeemed once.
	ws := api.Group("/ws")
	ws.Post("/ticket", s.AuthRequired(), s.IssueWSTicket)
	ws.Get("/", s.AuthRequired(), s.WebsocketHandler())

	protected := api.Group("", s.AuthRequired())

	profile := protected.Group("/profile")
	profile.Get("/", s.GetMyProfile)
	profile.Patch("/", s.UpdateMyProfile)
	profile.Post("/resubmit", s.ResubmitProfile)

	// Privilege for these is checked by the approval service itself.
	rpc := protected.Group("/rpc")
	rpc.Post("/approve_user", s.ApproveUser)
	rpc.Post("/reject_user", s.RejectUser)

	admin := protected.Group("/admin", s.ConsoleRequired())
	admin.Get("/profiles", s.ListProfiles)
	admin.Get("/profiles/pending", s.ListPendingProfiles)
	admin.Get("/usage", s.GetUsage)
	admin.Get("/allowlist", s.ListAllowedEmails)
	admin.Post("/allowlist", s.AddAllowedEmails)
	admin.Delete("/allowlist/:email", s.RemoveAllowedEmail)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	protected.Post("/chat", s.AppRequired(),
		middleware.RateLimit(s.redis, 15, time.Minute, "send_chat"), s.Chat)

	conversations := protected.Group("/conversations", s.AppRequired())
	conversations.Get("/", s.GetConversations)
	conversations.Post("/", s.CreateConversation)
	conversations.Get("/:id/messages", s.GetMessages)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Student Portal API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// StartRealtime subscribes the websocket hub and the in-process feed to
// profile change events until ctx is cancelled.
func (s *Server) StartRealtime(ctx context.Context) error {
	return s.notifier.StartProfileSubscriber(ctx, notifications.Fanout(s.hub.Deliver, s.feed.Deliver))
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.StartRealtime(s.shutdownCtx); err != nil {
		middleware.Logger.Error("failed to start realtime wiring", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}
	s.feed.Close()

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
