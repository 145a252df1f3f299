package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tracker/pkg/tracker"
)

// codeTimeout bounds how long a submitted code waits for the client to take it.
const codeTimeout = 5 * time.Second

// Client is the part of the Telegram client the API controls.
type Client interface {
	// SubmitCode hands a login code to a pending authentication.
	SubmitCode(ctx context.Context, code string) error
	Authorized() bool
	Dialogs(ctx context.Context) ([]tracker.Peer, error)
}

// APIServer holds the Gin engine and the Telegram client it controls.
type APIServer struct {
	router *gin.Engine
	client Client
	logger *zap.Logger
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(client Client, logger *zap.Logger) *APIServer {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	server := &APIServer{
		router: router,
		client: client,
		logger: logger,
	}
	server.setupRoutes()
	return server
}

func (s *APIServer) setupRoutes() {
	// Endpoint to submit Telegram authentication code
	s.router.POST("/auth/code", s.handleAuthCode)
	// Endpoint to list chats with the ids TARGET_USER and LOG_CHAT_ID accept
	s.router.GET("/chats", s.handleGetChats)
	s.router.GET("/healthz", s.handleHealth)
}

// Handler exposes the routes, for tests and embedding.
func (s *APIServer) Handler() http.Handler { return s.router }

type authCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *APIServer) handleAuthCode(c *gin.Context) {
	var req authCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("Failed to bind JSON for auth code", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.client.Authorized() {
		c.JSON(http.StatusConflict, gin.H{"error": "Session is already authorized."})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), codeTimeout)
	defer cancel()

	if err := s.client.SubmitCode(ctx, req.Code); err != nil {
		if c.Request.Context().Err() != nil {
			s.logger.Warn("Auth code request timed out or cancelled.")
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request timed out or cancelled."})
			return
		}
		s.logger.Error("Telegram client not ready to receive code.", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram client not ready to receive code."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Authentication code received."})
}

type chatInfo struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

func (s *APIServer) handleGetChats(c *gin.Context) {
	if !s.client.Authorized() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram session is not authorized yet."})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second) // Short timeout for chat list
	defer cancel()

	peers, err := s.client.Dialogs(ctx)
	if err != nil {
		s.logger.Error("Failed to get chats from Telegram client", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get chats"})
		return
	}

	chats := make([]chatInfo, 0, len(peers))
	for _, p := range peers {
		chats = append(chats, chatInfo{
			ID:       tracker.BotAPIID(p),
			Kind:     p.Kind.String(),
			Name:     p.DisplayName(),
			Username: p.Username,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (s *APIServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "authorized": s.client.Authorized()})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", zap.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("API server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
