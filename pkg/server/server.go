// Package server wires the HTTP surface: auth, metered enhancement and
// analysis endpoints, mindmap generation, and credit accounting.
package server

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"narrativeiq/pkg/auth"
	"narrativeiq/pkg/config"
	"narrativeiq/pkg/enhance"
	"narrativeiq/pkg/graph"
	"narrativeiq/pkg/ledger"
	"narrativeiq/pkg/store"
)

type Server struct {
	Echo *echo.Echo

	cfg     *config.Config
	store   *store.Store
	auth    *auth.Authenticator
	ledger  *ledger.Ledger
	enhance *enhance.Service
	graph   *graph.Service
}

func NewServer(cfg *config.Config, st *store.Store, a *auth.Authenticator, l *ledger.Ledger, enh *enhance.Service, gr *graph.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	s := &Server{
		Echo:    e,
		cfg:     cfg,
		store:   st,
		auth:    a,
		ledger:  l,
		enhance: enh,
		graph:   gr,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api")

	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/auth/me", s.handleMe, s.requireAuth)

	api.GET("/enhance/personas", s.handlePersonas)
	api.POST("/enhance", s.handleEnhance, s.requireAuth)
	api.POST("/enhance/stream", s.handleEnhanceStream, s.requireAuth)
	api.GET("/enhance/history", s.handleHistory, s.requireAuth)

	api.POST("/documents", s.handleSaveDocument, s.requireAuth)
	api.GET("/documents", s.handleListDocuments, s.requireAuth)
	api.GET("/documents/:id", s.handleGetDocument, s.requireAuth)

	api.POST("/analyze/consistency", s.handleConsistency, s.requireAuth)
	api.POST("/analyze/structure", s.handleStructure, s.requireAuth)
	api.POST("/analyze/character", s.handleCharacter, s.requireAuth)
	api.POST("/analyze/deep-scan", s.handleDeepScan, s.requireAuth)

	api.POST("/mindmap", s.handleMindmap, s.requireAuth)
	api.POST("/mindmap/image", s.handleMindmapImage, s.requireAuth)

	api.POST("/story/complete", s.handleStoryComplete, s.requireAuth)

	api.GET("/credits", s.handleBalance, s.requireAuth)
	api.GET("/credits/pricing", s.handlePricing)
	api.POST("/credits/add", s.handleAddCredits, s.requireAuth)
}

func (s *Server) Start(addr string) error {
	log.Info("server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down server")
	return s.Echo.Shutdown(ctx)
}
