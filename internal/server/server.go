package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ordercast/ordercast/internal/config"
	"github.com/ordercast/ordercast/internal/hub"
	"github.com/ordercast/ordercast/internal/query"
	"github.com/ordercast/ordercast/internal/store"
	"github.com/ordercast/ordercast/internal/version"
)

// Server is the HTTP surface over the snapshot store and broadcast hub.
type Server struct {
	cfg     config.ServerConfig
	store   *store.Store
	queries *query.Facade
	hub     *hub.Hub
	logger  *slog.Logger

	engine *gin.Engine
	http   *http.Server
}

// New builds the server and its routes.
func New(cfg config.ServerConfig, st *store.Store, queries *query.Facade, h *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:     cfg,
		store:   st,
		queries: queries,
		hub:     h,
		logger:  logger,
		engine:  engine,
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/api/orders", s.handleOrders)
	engine.GET("/api/filter", s.handleFilter)
	engine.GET("/ws", s.handleWS)

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.engine,
	}

	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.store.Current()
	stats := s.hub.Stats()

	status := "ok"
	if !s.store.Seeded() {
		status = "starting"
	}

	resp := gin.H{
		"status":  status,
		"version": version.String(),
		"snapshot": gin.H{
			"seeded":    s.store.Seeded(),
			"orders":    len(snap.Orders),
			"signature": snap.Signature,
		},
		"hub": gin.H{
			"subscribers": stats.Subscribers,
			"broadcasts":  stats.Broadcasts,
			"dropped":     stats.Dropped,
		},
	}
	if s.store.Seeded() {
		resp["snapshot"].(gin.H)["fetched_at"] = snap.FetchedAt
		resp["snapshot"].(gin.H)["age_ms"] = time.Since(snap.FetchedAt).Milliseconds()
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleOrders(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	orders := s.queries.ListOrders(includeInactive)

	c.JSON(http.StatusOK, gin.H{
		"orders":     orders,
		"count":      len(orders),
		"signature":  s.store.Signature(),
		"fetched_at": s.store.FetchedAt(),
	})
}

func (s *Server) handleFilter(c *gin.Context) {
	o, err := s.queries.FindOrder(c.Query("order_id"))
	switch {
	case errors.Is(err, query.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
	case errors.Is(err, query.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	default:
		c.JSON(http.StatusOK, o)
	}
}

func (s *Server) handleWS(c *gin.Context) {
	if err := s.hub.ServeWS(c.Writer, c.Request); err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
	}
}
