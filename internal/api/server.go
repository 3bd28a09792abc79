// Package api exposes concierge sessions, the call desk and preferences over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"val8-concierge/internal/desk"
	"val8-concierge/internal/engine"
	"val8-concierge/internal/events"
	"val8-concierge/internal/script"
	"val8-concierge/internal/theme"
)

const shutdownTimeout = 5 * time.Second

// Subscriber streams the events of a session
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan events.Event, error)
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	// Demo and Voice are the defaults for sessions created without them
	Demo  bool
	Voice bool
}

// Deps are the services the routes are backed by
type Deps struct {
	Registry   *engine.Registry
	Catalog    *script.Catalog
	Subscriber Subscriber
	Themes     *theme.Service
	Desk       *desk.Desk
}

type Server struct {
	deps   Deps
	cfg    *Config
	log    zerolog.Logger
	router *gin.Engine
}

// NewServer builds the router
func NewServer(deps Deps, cfg *Config, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		deps: deps,
		cfg:  cfg,
		log:  logger.With().Str("component", "api").Logger(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log).middleware())

	s.registerRoutes(r)
	s.router = r
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.deps.Registry.Len()})
	})

	api := r.Group("/api")
	api.GET("/scripts", s.listScripts)

	sessions := api.Group("/sessions")
	{
		sessions.POST("", s.createSession)
		sessions.GET("/:id", s.getSession)
		sessions.DELETE("/:id", s.deleteSession)
		sessions.POST("/:id/messages", s.postMessage)
		sessions.POST("/:id/reset", s.resetSession)
		sessions.PUT("/:id/script", s.selectScript)
		sessions.PUT("/:id/mode", s.setMode)
		sessions.POST("/:id/recommendations/:rid", s.selectRecommendation)
		sessions.POST("/:id/categories/:category/confirm", s.confirmCategory)
		sessions.PATCH("/:id/ledger/:category", s.editBooking)
		sessions.GET("/:id/summary", s.getSummary)
		sessions.POST("/:id/checkout", s.submitCheckout)
		sessions.POST("/:id/demo-checkout", s.completeDemoCheckout)
		sessions.POST("/:id/navigate", s.navigate)
		sessions.GET("/:id/stream", s.stream)
	}

	prefs := api.Group("/preferences")
	{
		prefs.GET("/theme", s.getTheme)
		prefs.PUT("/theme", s.setTheme)
	}

	d := api.Group("/desk")
	{
		d.GET("", s.getDesk)
		d.POST("/calls/:id/accept", s.acceptCall)
		d.POST("/hold", s.holdCall)
		d.POST("/end", s.endCall)
		d.PUT("/profile", s.setProfile)
		d.POST("/recommendations/:id/toggle", s.toggleDeskRecommendation)
		d.POST("/demo", s.startDeskDemo)
		d.DELETE("/demo", s.resetDeskDemo)
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
