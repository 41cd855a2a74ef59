// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"labbook/internal/bootstrap"
	"labbook/internal/cache"
	"labbook/internal/config"
	"labbook/internal/events"
	"labbook/internal/featureflags"
	"labbook/internal/feed"
	"labbook/internal/middleware"
	"labbook/internal/models"
	"labbook/internal/notifications"
	"labbook/internal/repository"
	"labbook/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	revokedKeyPrefix   = "labbook:revoked:"
	globalRequestLimit = 300
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	bus      *events.Bus
	notifier *notifications.Notifier
	hub      *notifications.Hub
	watcher  *feed.Watcher
	flags    *featureflags.Manager
	detach   []func()

	profileRepo repository.ProfileRepository

	profileService      *service.ProfileService
	postService         *service.PostService
	insightService      *service.InsightService
	validationService   *service.ValidationService
	collaboratorService *service.CollaboratorService
	feedService         *service.FeedService
	problemService      *service.ProblemService
	mediaService        *service.MediaService
}

// NewServer connects the store and cache, then builds the server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client disables caching, rate limiting and cross-instance
// delivery; events then reach websocket clients straight from the bus.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("config and database are required")
	}
	middleware.InitMiddleware(cfg)
	if cache.GetClient() != redisClient {
		cache.SetClient(redisClient)
	}

	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	solutionRepo := repository.NewSolutionRepository(db)
	validationRepo := repository.NewValidationRepository(db)
	collabRepo := repository.NewCollaboratorRepository(db)
	problemRepo := repository.NewProblemRepository(db)

	bus := events.NewBus()

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("labbook-api"),
		bus:            bus,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(redisClient),
		flags:          featureflags.NewManager(cfg.FeatureFlags),
		profileRepo:    profileRepo,
	}

	s.profileService = service.NewProfileService(profileRepo)
	s.postService = service.NewPostService(postRepo, problemRepo, bus)
	s.insightService = service.NewInsightService(solutionRepo, postRepo, bus)
	s.validationService = service.NewValidationService(validationRepo, postRepo, bus)
	s.collaboratorService = service.NewCollaboratorService(collabRepo, profileRepo, bus)
	s.feedService = service.NewFeedService(postRepo, validationRepo, solutionRepo, s.collaboratorService)
	s.problemService = service.NewProblemService(problemRepo)
	s.mediaService = service.NewMediaService(cfg)

	s.watcher = feed.NewWatcher(s.feedService.LatestPostAt, cfg.FeedPollInterval, func(ctx context.Context, newest time.Time) {
		bus.Publish(ctx, events.New(events.FeedNewPostsAvailable, service.FeedUpdates{Available: true, Latest: newest}))
	})

	if s.notifier.Enabled() {
		s.detach = append(s.detach, s.notifier.Forward(bus))
		middleware.SetRevocationChecker(s.isTokenRevoked)
	} else {
		s.detach = append(s.detach, s.hub.Attach(bus))
		middleware.SetRevocationChecker(nil)
	}
	s.hub.SetPresenceCallbacks(s.presenceChanged(true), s.presenceChanged(false))

	return s, nil
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

	app.Use(helmet.New(helmet.Config{
		// Media is embedded by the web client from another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
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
		Max:        globalRequestLimit,
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

	app.Use(middleware.RouteGuard())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(s.config.MediaBaseURL, s.mediaService.Dir(), fiber.Static{
		MaxAge: 86400,
	})

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Labbook Metrics Dashboard",
	}))

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)
	auth.Get("/session", middleware.OptionalAuth, s.Session)

	// Reads are public; a session only personalizes them.
	public := api.Group("", middleware.OptionalAuth)
	public.Get("/flags", s.GetFlags)
	public.Get("/feed/updates", s.GetFeedUpdates)
	public.Get("/feed", s.GetFeed)
	public.Get("/profiles/:id/posts", s.GetProfilePosts)
	public.Get("/profiles/:id", s.GetProfile)
	public.Get("/posts/:id/insights", s.GetInsights)
	public.Get("/posts/:id/counts", s.GetCounts)
	public.Get("/posts/:id", s.GetPost)
	public.Get("/problems", s.GetProblems)
	public.Get("/problems/:id/experiments", s.GetProblemExperiments)
	public.Get("/problems/:id", s.GetProblem)

	protected := api.Group("", middleware.AuthRequired)

	protected.Put("/profiles/me", s.UpdateMyProfile)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 5, 5*time.Minute, "publish"), s.CreatePost)
	posts.Post("/:id/insights", middleware.RateLimit(s.redis, 10, time.Minute, "insight"), s.CreateInsight)
	posts.Delete("/:id/insights/:insightId", s.DeleteInsight)
	posts.Post("/:id/validate", s.ToggleValidation)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	collaborators := protected.Group("/collaborators")
	collaborators.Get("/", s.GetCollaborators)
	collaborators.Get("/requests", s.GetCollaboratorRequests)
	collaborators.Get("/:userId/status", s.GetCollaboratorStatus)
	collaborators.Post("/:userId/act", s.ActOnCollaborator)
	collaborators.Post("/:userId/decline", s.DeclineCollaborator)

	protected.Post("/problems", middleware.RateLimit(s.redis, 5, 5*time.Minute, "publish"), s.CreateProblem)
	protected.Post("/media", s.UploadMedia)

	ws := api.Group("/ws", middleware.WebSocketAuthRequired)
	ws.Get("/", s.WebsocketHandler())
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
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the server runs single-instance.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"websockets": s.hub.ConnectionCount(),
		"time":       time.Now(),
	})
}

// NewApp builds the Fiber app with middleware and routes mounted.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Labbook API",
		BodyLimit: (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// StartBackground starts the Redis subscriber and the feed watcher. Both stop
// when ctx is cancelled.
func (s *Server) StartBackground(ctx context.Context) {
	if s.notifier.Enabled() {
		if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
			middleware.Logger.Error("event subscriber failed to start", slog.String("error", err.Error()))
		}
	}
	if s.flags.Enabled(featureflags.LiveFeed, 0) {
		go s.watcher.Start(ctx)
	}
}

// Start builds the app, starts background work and listens. It blocks until
// the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()
	s.StartBackground(ctx)

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	for _, detach := range s.detach {
		detach()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close database: %w", cerr))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", rerr))
		}
		cache.SetClient(nil)
	}

	middleware.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}

func (s *Server) isTokenRevoked(ctx context.Context, jti string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, revokedKeyPrefix+jti).Result()
	return err == nil && n > 0
}

// presenceChanged tells a user's collaborators that they came online or left.
func (s *Server) presenceChanged(online bool) func(userID uint) {
	return func(userID uint) {
		if !s.flags.Enabled(featureflags.Presence, userID) {
			return
		}
		ctx := context.Background()
		ids, err := s.collaboratorService.CollaboratorIDs(ctx, userID)
		if err != nil {
			middleware.Logger.Warn("presence fan-out failed",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			return
		}
		if len(ids) == 0 {
			return
		}
		recipients := make([]uint, 0, len(ids))
		for id := range ids {
			recipients = append(recipients, id)
		}
		s.bus.Publish(ctx, events.New(events.PresenceChanged, fiber.Map{
			"user_id": userID,
			"online":  online,
		}, recipients...))
	}
}
