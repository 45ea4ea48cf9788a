// Package server exposes the ingest pipeline over HTTP for SMS gateway
// callbacks and operational triggers.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"github.com/mikey/sms-spam-sentinel/internal/ingest"
	"go.uber.org/zap"
)

// Server is the HTTP surface over the ingestion coordinator
type Server struct {
	coordinator *ingest.Coordinator
	store       core.MessageStore
	logger      *zap.Logger
	httpServer  *http.Server
}

// NewServer creates the HTTP server listening on addr
func NewServer(coordinator *ingest.Coordinator, store core.MessageStore, logger *zap.Logger, addr string) *Server {
	s := &Server{
		coordinator: coordinator,
		store:       store,
		logger:      logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.health)

	v1 := router.Group("/v1")
	{
		v1.POST("/messages", s.ingestMessage)
		v1.GET("/messages/:id", s.getMessage)
		v1.POST("/scan", s.scanBacklog)
		v1.POST("/classify-pending", s.classifyPending)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type ingestRequest struct {
	Sender      string `json:"sender" binding:"required"`
	Body        string `json:"body" binding:"required"`
	TimestampMs int64  `json:"timestamp_ms"`
}

func (s *Server) ingestMessage(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	arrivedAt := time.Now()
	if req.TimestampMs > 0 {
		arrivedAt = time.UnixMilli(req.TimestampMs)
	}

	msg, err := s.coordinator.OnNewMessage(c.Request.Context(), req.Sender, req.Body, arrivedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":         msg.ID,
		"verdict":    msg.Verdict,
		"confidence": msg.Confidence,
		"reason":     msg.Reason,
	})
}

func (s *Server) getMessage(c *gin.Context) {
	msg, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         msg.ID,
		"sender":     msg.Sender,
		"body":       msg.Body,
		"arrived_at": msg.ArrivedAt,
		"verdict":    msg.Verdict,
		"confidence": msg.Confidence,
		"reason":     msg.Reason,
	})
}

type scanRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) scanBacklog(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Limit <= 0 {
		req.Limit = 100
	}

	processed, err := s.coordinator.ScanBacklog(c.Request.Context(), req.Limit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "backlog scan failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}

func (s *Server) classifyPending(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Limit <= 0 {
		req.Limit = 100
	}

	processed, err := s.coordinator.ClassifyPending(c.Request.Context(), req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classify pending failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
