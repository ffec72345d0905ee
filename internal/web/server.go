// Package web serves the operator UI and JSON API: the live session
// table, the roster for starting sessions, and the clock controls.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/cardclub/tabled/internal/audit"
	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/ledger"
	"github.com/cardclub/tabled/internal/policy"
	"github.com/cardclub/tabled/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

//go:embed static
var staticFS embed.FS

// Config holds the web server configuration.
type Config struct {
	ListenAddr      string
	ClubName        string
	Username        string
	PasswordHash    string
	JWTSecret       string
	TokenExpiration time.Duration
}

// Server is the operator-facing HTTP server.
type Server struct {
	config     Config
	store      storage.Store
	ledger     *ledger.Ledger
	selector   *policy.Selector
	wall       *clock.WallClock
	trail      *audit.Log
	resolution clock.Resolution
	location   *time.Location
	auth       *Auth
	engine     *gin.Engine
	server     *http.Server
	logger     zerolog.Logger
}

// NewServer creates the operator server and wires its routes.
func NewServer(cfg Config, store storage.Store, l *ledger.Ledger, selector *policy.Selector,
	wall *clock.WallClock, trail *audit.Log, resolution clock.Resolution,
	location *time.Location, logger zerolog.Logger) *Server {

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:     cfg,
		store:      store,
		ledger:     l,
		selector:   selector,
		wall:       wall,
		trail:      trail,
		resolution: resolution,
		location:   location,
		auth:       NewAuth(cfg.Username, cfg.PasswordHash, cfg.JWTSecret, cfg.TokenExpiration),
		engine:     engine,
		logger:     logger.With().Str("component", "web").Logger(),
	}

	engine.SetHTMLTemplate(template.Must(template.ParseFS(staticFS, "static/templates/*.html")))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.engine.Use(LoggingMiddleware(s.logger))

	// Public routes
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/login", s.handleLoginPage)
	s.engine.POST("/api/auth/login", s.handleLogin)

	authed := s.engine.Group("/")
	if s.auth.Enabled() {
		authed.Use(AuthMiddleware(s.auth))
	}

	authed.GET("/", s.handleIndex)
	authed.POST("/api/auth/logout", s.handleLogout)

	authed.GET("/api/sessions", s.handleListSessions)
	authed.POST("/api/sessions/:id/close", s.handleCloseSession)
	authed.GET("/api/roster", s.handleRoster)
	authed.POST("/api/players/:id/select", s.handleSelectPlayer)
	authed.GET("/api/clock", s.handleGetClock)
	authed.POST("/api/clock", s.handleSetClock)
	authed.GET("/api/audit", s.handleAudit)
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Operator server started")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Operator server stopped")
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
