package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campuscast-api/internal/config"
	"github.com/gravadigital/campuscast-api/internal/handlers"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/middleware/events"
	"github.com/gravadigital/campuscast-api/internal/services"
)

// Dependencies are the services the routes are served from
type Dependencies struct {
	Events     *services.EventService
	Users      *services.UserService
	Identities events.IdentitySource
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	deps       Dependencies

	// cancels request contexts so open event streams end on shutdown
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     cfg,
		deps:       deps,
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	router := s.Router()

	s.httpServer = &http.Server{
		Addr:    s.Addr(),
		Handler: router,

		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: /api/events/stream stays open.
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}

	logger.Get().Info("Starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Addr is the listen address. The signed-in identity is process-wide, so the
// default host is loopback.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")
	s.cancelBase()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router configures the HTTP router with middleware and routes
func (s *Server) Router() *gin.Engine {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if s.config.Server.GinMode != "" {
		gin.SetMode(s.config.Server.GinMode)
	}

	router := gin.New()

	router.Use(events.CreateEvent())
	router.Use(gin.Recovery())
	router.Use(cors.New(s.corsConfig()))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "CampusCast API is running",
			"status":  "healthy",
		})
	})

	s.setupAPIRoutes(router,
		handlers.NewSessionHandler(s.deps.Users),
		handlers.NewEventHandler(s.deps.Events),
		handlers.NewVoteHandler(s.deps.Events),
		handlers.NewStreamHandler(s.deps.Events),
	)

	return router
}

func (s *Server) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.ExposeHeaders = []string{events.RequestIDHeader}

	if origins := splitList(s.config.CORS.AllowOrigins); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	if methods := splitList(s.config.CORS.AllowMethods); len(methods) > 0 {
		corsConfig.AllowMethods = methods
	}
	if headers := splitList(s.config.CORS.AllowHeaders); len(headers) > 0 {
		corsConfig.AllowHeaders = headers
	}
	return corsConfig
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(
	router *gin.Engine,
	sessionHandler *handlers.SessionHandler,
	eventHandler *handlers.EventHandler,
	voteHandler *handlers.VoteHandler,
	streamHandler *handlers.StreamHandler,
) {
	api := router.Group("/api")
	{
		session := api.Group("/session")
		{
			session.GET("", sessionHandler.GetSession)
			session.POST("", sessionHandler.SignIn)
			session.DELETE("", sessionHandler.SignOut)
			session.PATCH("/profile", sessionHandler.UpdateProfile)
		}

		eventRoutes := api.Group("/events", events.RequireIdentity(s.deps.Identities))
		{
			eventRoutes.GET("", eventHandler.GetAllEvents)
			eventRoutes.POST("", eventHandler.CreateEvent)
			eventRoutes.GET("/stream", streamHandler.Stream)
			eventRoutes.GET("/:id", eventHandler.GetEvent)
			eventRoutes.PUT("/:id", eventHandler.UpdateEvent)
			eventRoutes.DELETE("/:id", eventHandler.DeleteEvent)
			eventRoutes.POST("/:id/votes", voteHandler.SubmitVote)
			eventRoutes.GET("/:id/results", voteHandler.GetEventResults)
		}
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
