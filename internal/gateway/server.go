package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stock_sim/internal/domain"
	"stock_sim/internal/engine"
	"stock_sim/internal/infra"
)

// Server is the HTTP/WebSocket transport in front of the market engine.
// It only calls the engine's external interface; the engine never
// imports it.
type Server struct {
	eng    *engine.Engine
	router *gin.Engine
}

// New builds the gateway and its routes.
func New(eng *engine.Engine) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{eng: eng, router: router}

	api := router.Group("/api")
	api.POST("/account", s.handleEnsureAccount)
	api.GET("/market", s.handleMarket)
	api.GET("/portfolio/:id", s.handlePortfolio)
	api.POST("/trade", s.handleTrade)
	api.GET("/stats", s.handleStats)
	router.GET("/ws", s.handleStream)

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type ensureAccountRequest struct {
	AccountID string `json:"account_id"`
}

func (s *Server) handleEnsureAccount(c *gin.Context) {
	var req ensureAccountRequest
	// An empty body is fine; it means "create a fresh account".
	_ = c.ShouldBindJSON(&req)

	id, err := s.eng.EnsureAccount(req.AccountID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	view, err := s.eng.PortfolioView(id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "portfolio": view})
}

func (s *Server) handleMarket(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Snapshot())
}

func (s *Server) handlePortfolio(c *gin.Context) {
	view, err := s.eng.PortfolioView(c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type tradeRequest struct {
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	Side      string `json:"side"`
}

func (s *Server) handleTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := s.eng.ExecuteTrade(req.AccountID, req.Symbol, req.Quantity, req.Side)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "success", "trade": result.Trade, "portfolio": result.Portfolio})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, infra.GlobalMetrics.Snapshot())
}

// renderError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		slog.Error("gateway internal error", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
