package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	tokens "github.com/gravadigital/bienestar-api/internal/auth"
	"github.com/gravadigital/bienestar-api/internal/config"
	"github.com/gravadigital/bienestar-api/internal/handlers"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/middleware/auth"
	"github.com/gravadigital/bienestar-api/internal/middleware/ratelimit"
	"github.com/gravadigital/bienestar-api/internal/middleware/requestlog"
	"github.com/gravadigital/bienestar-api/internal/services"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

// Dependencies are the collaborators the router is built from
type Dependencies struct {
	Store    postgres.RepositoryContainer
	Venues   *services.VenueService
	Events   *services.EventService
	Accounts *services.AccountService
	Tokens   *tokens.TokenManager
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	deps       Dependencies
	limiter    *ratelimit.Limiter
	done       chan struct{}
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies) *Server {
	return &Server{
		config:  cfg,
		deps:    deps,
		limiter: ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		done:    make(chan struct{}),
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: otelhttp.NewHandler(s.Router(), "bienestar-api"),

		// Timeouts seguros según estándares de Go
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.cleanupVisitors()

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	select {
	case <-s.done:
	default:
		close(s.done)
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.limiter.Cleanup(); n > 0 {
				logger.HTTP().Debug("Evicted idle rate limit visitors", "count", n)
			}
		case <-s.done:
			return
		}
	}
}

// Router configures the HTTP router with middleware and routes
func (s *Server) Router() *gin.Engine {
	// Configurar Gin
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware básico
	router.Use(requestlog.New())
	router.Use(gin.Recovery())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.config.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestlog.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{requestlog.HeaderRequestID}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/ping", s.ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.setupAPIRoutes(router)

	return router
}

func (s *Server) ping(c *gin.Context) {
	if s.deps.Store != nil {
		if err := s.deps.Store.Health(); err != nil {
			logger.HTTP().Error("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"message": "storage unavailable",
				"status":  "unhealthy",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Bienestar API is running",
		"status":  "healthy",
	})
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(router *gin.Engine) {
	venueHandler := handlers.NewVenueHandler(s.deps.Venues)
	eventHandler := handlers.NewEventHandler(s.deps.Events)
	accountHandler := handlers.NewAccountHandler(s.deps.Accounts)
	authHandler := handlers.NewAuthHandler(s.deps.Accounts, s.deps.Tokens)

	api := router.Group("/api")

	// Rutas públicas, con límite de peticiones
	public := api.Group("/auth", s.limiter.Middleware())
	{
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
	}

	protected := api.Group("", auth.RequireToken(s.deps.Tokens))
	{
		venues := protected.Group("/venues")
		{
			venues.GET("", venueHandler.ListVenues)
			venues.POST("", venueHandler.CreateVenue)
			venues.GET("/nearby", venueHandler.NearbyVenues)
			venues.GET("/stats", venueHandler.VenueStats)
			venues.GET("/:id", venueHandler.GetVenue)
			venues.PATCH("/:id", venueHandler.UpdateVenue)
			venues.DELETE("/:id", venueHandler.DeleteVenue)
			venues.DELETE("/:id/permanent", venueHandler.DeleteVenuePermanently)
			venues.PUT("/:id/photo", venueHandler.UploadPhoto)
			venues.GET("/:id/photo", venueHandler.GetPhoto)
		}

		events := protected.Group("/events")
		{
			events.GET("", eventHandler.ListEvents)
			events.POST("", eventHandler.CreateEvent)
			events.GET("/mine", eventHandler.MyEvents)
			events.GET("/:id", eventHandler.GetEvent)
			events.PATCH("/:id", eventHandler.UpdateEvent)
			events.DELETE("/:id", eventHandler.DeleteEvent)
			events.DELETE("/:id/permanent", eventHandler.DeleteEventPermanently)
			events.GET("/:id/participants", eventHandler.GetParticipants)
			events.POST("/:id/enrollment", eventHandler.Enroll)
			events.DELETE("/:id/enrollment", eventHandler.Unenroll)
		}

		accounts := protected.Group("/accounts")
		{
			accounts.GET("/me", accountHandler.Me)
			accounts.PATCH("/me", accountHandler.UpdateMe)

			staff := accounts.Group("", auth.RequireStaff())
			staff.GET("", accountHandler.ListAccounts)
			staff.GET("/:id", accountHandler.GetAccount)
			staff.PATCH("/:id", accountHandler.UpdateAccount)
			staff.DELETE("/:id", accountHandler.DeleteAccount)
		}
	}
}
