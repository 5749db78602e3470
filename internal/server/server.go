// Package server contains the HTTP and WebSocket handlers of the marketplace API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "gigboard/docs" // swagger docs
	"gigboard/internal/auth"
	"gigboard/internal/cache"
	"gigboard/internal/config"
	"gigboard/internal/featureflags"
	"gigboard/internal/middleware"
	"gigboard/internal/models"
	"gigboard/internal/notifications"
	"gigboard/internal/repository"
	"gigboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	sessions *auth.SessionManager
	resolver *auth.Resolver
	oauth    *oauth2.Config

	notifier     *notifications.Notifier
	chatHub      *notifications.ChatHub
	hubs         []wireableHub
	featureFlags *featureflags.Manager

	users     *service.UserService
	jobs      *service.JobService
	proposals *service.ProposalService
	contracts *service.ContractService
	disputes  *service.DisputeService
	wallet    *service.WalletService
	admin     *service.AdminService
	chat      *service.ChatService
	views     *service.ViewService
	uploads   *service.UploadService
	ai        *service.AIService
}

// NewServerWithDeps creates a Server over already-initialized dependencies.
// db may be nil, in which case data endpoints answer 503; redis may be nil,
// which disables caching, revocation, rate limits and cross-instance chat.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	viewCache := cache.NewViewCache(redisClient)
	sessions := auth.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL(), redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("gigboard-api"),
		sessions:       sessions,
		oauth:          googleOAuthConfig(cfg),
		notifier:       notifications.NewNotifier(redisClient),
		chatHub:        notifications.NewChatHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),

		users:     service.NewUserService(db, viewCache),
		jobs:      service.NewJobService(db, viewCache),
		proposals: service.NewProposalService(db, viewCache),
		contracts: service.NewContractService(db, viewCache),
		disputes:  service.NewDisputeService(db, viewCache),
		wallet:    service.NewWalletService(db, viewCache),
		admin:     service.NewAdminService(db, viewCache),
		views:     service.NewViewService(db, viewCache),
		uploads:   service.NewUploadService(cfg),
	}
	s.hubs = []wireableHub{s.chatHub}
	s.chat = service.NewChatService(db, viewCache, s.chatHub)
	s.views.WithPresence(s.chatHub)
	s.ai = service.NewAIService(cfg, s.featureFlags)

	if db != nil {
		s.resolver = auth.NewResolver(sessions, repository.NewUserRepository(db))
	}
	return s, nil
}

// NewApp builds the fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "GigBoard API",
		BodyLimit:    (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler answers anything a handler did not. Panics recovered by the
// recover middleware end up here too; their detail is logged only.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
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

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))

	// Identity first so request logs and rate limits know the user.
	app.Use(s.Session())
	app.Use(middleware.StructuredLogger())

	// CORS before anything that can short-circuit so error responses keep
	// their CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests. Please slow down.",
			})
		},
	}))

	app.Use(s.RouteGate())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/media", s.uploads.Dir(), fiber.Static{MaxAge: 86400})

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	authRoutes.Post("/signin", middleware.RateLimit(s.redis, 10, 5*time.Minute, "signin"), s.Signin)
	authRoutes.Post("/signout", s.Signout)
	authRoutes.Get("/session", s.GetSession)
	authRoutes.Get("/google", s.GoogleLogin)
	authRoutes.Get("/google/callback", s.GoogleCallback)

	// Everything below needs a signed-in user.
	protected := api.Group("", s.SessionRequired())

	protected.Get("/me", s.GetMe)
	protected.Put("/me/profile", s.UpdateProfile)
	protected.Post("/me/onboarding", s.CompleteOnboarding)
	protected.Post("/uploads", middleware.RateLimit(s.redis, 20, 10*time.Minute, "uploads"), s.UploadImage)

	jobs := protected.Group("/jobs")
	jobs.Get("/", s.ListJobs)
	jobs.Post("/", s.CreateJob)
	// Specific /:id/:resource routes before the generic /:id routes.
	jobs.Post("/:id/proposals", middleware.RateLimit(s.redis, 20, time.Hour, "proposals"), s.SubmitProposal)
	jobs.Post("/:id/proposals/:proposalId/hire", s.HireProposal)
	jobs.Patch("/:id/status", s.UpdateJobStatus)
	jobs.Get("/:id", s.GetJob)
	jobs.Put("/:id", s.UpdateJob)

	proposals := protected.Group("/proposals")
	proposals.Get("/mine", s.ListMyProposals)
	proposals.Post("/:id/withdraw", s.WithdrawProposal)
	proposals.Post("/:id/shortlist", s.ShortlistProposal)
	proposals.Post("/:id/decline", s.DeclineProposal)
	proposals.Get("/:id", s.GetProposal)

	contracts := protected.Group("/contracts")
	contracts.Get("/", s.ListContracts)
	contracts.Post("/:id/complete", s.CompleteContract)
	contracts.Post("/:id/milestones", s.CreateMilestone)
	contracts.Post("/:id/disputes", s.OpenDispute)
	contracts.Get("/:id/messages", s.GetMessages)
	contracts.Post("/:id/messages", middleware.RateLimit(s.redis, 30, time.Minute, "messages"), s.SendMessage)
	contracts.Get("/:id", s.GetContract)

	milestones := protected.Group("/milestones")
	milestones.Post("/:id/submit", s.SubmitMilestone)
	milestones.Post("/:id/approve", s.ApproveMilestone)
	milestones.Post("/:id/reject", s.RejectMilestone)

	wallet := protected.Group("/wallet")
	wallet.Get("/", s.GetWallet)
	wallet.Post("/withdrawals", middleware.RateLimitWithPolicy(s.redis, 5, time.Hour, middleware.FailClosed, "withdrawals"), s.RequestWithdrawal)

	dashboard := protected.Group("/dashboard")
	dashboard.Get("/freelancer", s.FreelancerDashboard)
	dashboard.Get("/employer", s.EmployerDashboard)

	protected.Post("/ai/generate", middleware.RateLimit(s.redis, 10, time.Minute, "ai"), s.Generate)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/overview", s.AdminOverview)
	admin.Post("/users/:id/suspend", s.SuspendUser)
	admin.Post("/users/:id/reinstate", s.ReinstateUser)
	admin.Get("/settings", s.GetSettings)
	admin.Put("/settings", s.UpdateSettings)
	admin.Get("/disputes", s.ListDisputes)
	admin.Post("/disputes/:id/resolve", s.ResolveDispute)
	admin.Get("/withdrawals", s.ListWithdrawals)
	admin.Post("/withdrawals/:id/advance", s.AdvanceWithdrawal)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	ws := api.Group("/ws", s.SessionRequired(), WebSocketUpgradeRequired())
	ws.Get("/chat", s.WebSocketChatHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	// Redis is optional: without it the API still serves, just uncached.
	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the hubs and listens until the app is shut down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.NewApp()

	if s.notifier.Enabled() {
		for _, h := range s.hubs {
			if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("hub wiring failed, delivering locally",
					slog.String("hub", h.Name()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Warn("hub shutdown failed", slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Warn("http shutdown failed", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Warn("closing database failed", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Warn("closing redis failed", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
